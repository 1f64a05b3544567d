// Package agents implementa il coordinatore multi-agent di MarketMind.
//
// Il sistema include:
//   - Registry statico degli agenti (research, analyst, writer, strategist, coordinator)
//   - Planner che chiede al coordinator un piano JSON di 1-4 step, con fallback deterministico
//   - Executor che esegue gli step in ordine propagando i risultati delle dipendenze
//   - Synthesizer che unisce i risultati in una risposta finale
//   - Orchestrator che collega contesto di knowledge, esecuzione e registro dei run
//
// Esempio di utilizzo:
//
//	registry := agents.NewDefaultRegistry("")
//	client := openai.NewClient(openai.Config{APIKey: key})
//	orch := agents.NewOrchestrator(registry, client,
//	    agents.WithContextLoader(loader),
//	)
//
//	wf, err := orch.RunWorkflow(ctx, agents.Request{UserID: uid, Message: "Analyze the GCC coffee market"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(wf.FinalResult)
package agents
