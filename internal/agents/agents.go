package agents

// Agent identificativi registrati
const (
	AgentResearch    = "research"
	AgentAnalyst     = "analyst"
	AgentWriter      = "writer"
	AgentStrategist  = "strategist"
	AgentCoordinator = "coordinator"
)

// DefaultModel è il modello usato da tutti gli agenti di default
const DefaultModel = "google/gemini-2.5-flash"

// Agent rappresenta un agente specializzato. È immutabile dopo la creazione del registry.
type Agent struct {
	ID            string
	Name          string
	NameAr        string
	Description   string
	DescriptionAr string
	SystemPrompt  string
	Model         string
	Icon          string
	Color         string
}

// IsCoordinator indica se l'agente è riservato a pianificazione e sintesi
func (a Agent) IsCoordinator() bool {
	return a.ID == AgentCoordinator
}

// Registry è il catalogo statico degli agenti
type Registry struct {
	agents []Agent
	byID   map[string]int
}

// NewRegistry crea un registry con gli agenti dati, nell'ordine dato.
// Un ID duplicato sovrascrive la voce precedente mantenendone la posizione.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{
		agents: make([]Agent, 0, len(agents)),
		byID:   make(map[string]int, len(agents)),
	}

	for _, a := range agents {
		if idx, exists := r.byID[a.ID]; exists {
			r.agents[idx] = a
			continue
		}
		r.byID[a.ID] = len(r.agents)
		r.agents = append(r.agents, a)
	}

	return r
}

// NewDefaultRegistry crea il registry con gli agenti built-in. Se model non è
// vuoto sostituisce il modello di default di ogni agente.
func NewDefaultRegistry(model string) *Registry {
	defaults := defaultAgents()
	if model != "" {
		for i := range defaults {
			defaults[i].Model = model
		}
	}
	return NewRegistry(defaults...)
}

// List restituisce gli agenti in ordine stabile. La slice è una copia.
func (r *Registry) List() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Get restituisce l'agente con l'ID dato
func (r *Registry) Get(id string) (Agent, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Agent{}, false
	}
	return r.agents[idx], true
}

// Specialists restituisce tutti gli agenti tranne il coordinator
func (r *Registry) Specialists() []Agent {
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if !a.IsCoordinator() {
			out = append(out, a)
		}
	}
	return out
}

// IsSpecialist indica se id è un agente registrato utilizzabile come step
func (r *Registry) IsSpecialist(id string) bool {
	a, ok := r.Get(id)
	return ok && !a.IsCoordinator()
}

func defaultAgents() []Agent {
	return []Agent{
		{
			ID:            AgentResearch,
			Name:          "Research Agent",
			NameAr:        "وكيل البحث",
			Description:   "Deep research and information gathering",
			DescriptionAr: "البحث العميق وجمع المعلومات",
			SystemPrompt: `You are an expert Research Agent specializing in:
- Deep information gathering and synthesis
- Academic and market research
- Source verification and fact-checking
- Comprehensive literature reviews
- Data collection and analysis

Always provide well-sourced, factual information. Cite sources when possible.
Format your research findings clearly with sections and bullet points.`,
			Model: DefaultModel,
			Icon:  "🔬",
			Color: "from-blue-500 to-cyan-500",
		},
		{
			ID:            AgentAnalyst,
			Name:          "Analysis Agent",
			NameAr:        "وكيل التحليل",
			Description:   "Data analysis and insights extraction",
			DescriptionAr: "تحليل البيانات واستخراج الرؤى",
			SystemPrompt: `You are an expert Analysis Agent specializing in:
- Data interpretation and pattern recognition
- Statistical analysis and trend identification
- Business intelligence and competitive analysis
- SWOT analysis and strategic assessment
- Financial analysis and forecasting

Always provide actionable insights with clear reasoning.
Use tables, charts descriptions, and structured analysis formats.`,
			Model: DefaultModel,
			Icon:  "📊",
			Color: "from-purple-500 to-pink-500",
		},
		{
			ID:            AgentWriter,
			Name:          "Writer Agent",
			NameAr:        "وكيل الكتابة",
			Description:   "Content creation and editing",
			DescriptionAr: "إنشاء المحتوى وتحريره",
			SystemPrompt: `You are an expert Writer Agent specializing in:
- Professional content creation
- Technical and business writing
- Report and proposal drafting
- Editing and proofreading
- Multilingual content (English and Arabic)

Always produce clear, well-structured, and engaging content.
Adapt your tone and style to the context and audience.`,
			Model: DefaultModel,
			Icon:  "✍️",
			Color: "from-green-500 to-emerald-500",
		},
		{
			ID:            AgentStrategist,
			Name:          "Strategy Agent",
			NameAr:        "وكيل الاستراتيجية",
			Description:   "Strategic planning and recommendations",
			DescriptionAr: "التخطيط الاستراتيجي والتوصيات",
			SystemPrompt: `You are an expert Strategy Agent specializing in:
- Strategic planning and roadmap development
- Business model analysis and optimization
- Market entry and expansion strategies
- Risk assessment and mitigation
- Decision frameworks and recommendations

Always provide actionable strategic recommendations.
Consider multiple scenarios and provide risk-adjusted advice.`,
			Model: DefaultModel,
			Icon:  "🎯",
			Color: "from-orange-500 to-red-500",
		},
		{
			ID:            AgentCoordinator,
			Name:          "Coordinator Agent",
			NameAr:        "وكيل التنسيق",
			Description:   "Orchestrates multi-agent workflows",
			DescriptionAr: "ينسق سير العمل متعدد الوكلاء",
			SystemPrompt: `You are the Coordinator Agent. Your role is to:
- Analyze user requests and break them into subtasks
- Assign tasks to appropriate specialist agents
- Synthesize responses from multiple agents
- Ensure coherent and comprehensive final outputs
- Manage autonomous workflow execution

When given a complex task, first analyze it and plan the workflow.
Return a JSON workflow plan when type is "plan".`,
			Model: DefaultModel,
			Icon:  "🤖",
			Color: "from-violet-500 to-purple-500",
		},
	}
}
