package agents

// ExtractJSONObject restituisce la prima regione {...} bilanciata di s.
// Le parentesi dentro stringhe JSON sono ignorate. ok è false se non esiste.
func ExtractJSONObject(s string) (string, bool) {
	return extractBalanced(s, '{', '}')
}

// ExtractJSONArray restituisce la prima regione [...] bilanciata di s
func ExtractJSONArray(s string) (string, bool) {
	return extractBalanced(s, '[', ']')
}

// extractBalanced scorre s una sola volta. Le aperture non chiuse restano
// sullo stack: vince la prima apertura che trova la sua chiusura.
// Le virgolette contano solo dentro una regione candidata.
func extractBalanced(s string, open, close byte) (string, bool) {
	var starts []int
	bestStart, bestEnd := -1, -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if len(starts) > 0 {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' && inString {
				escaped = true
				continue
			}
			if c == '"' {
				inString = !inString
				continue
			}
			if inString {
				continue
			}
		}

		switch c {
		case open:
			starts = append(starts, i)
		case close:
			if len(starts) == 0 {
				continue
			}
			start := starts[len(starts)-1]
			starts = starts[:len(starts)-1]
			if len(starts) == 0 {
				// Nessuna apertura precedente ancora aperta
				return s[start : i+1], true
			}
			if bestStart == -1 || start < bestStart {
				bestStart, bestEnd = start, i
			}
		}
	}

	if bestStart == -1 {
		return "", false
	}
	return s[bestStart : bestEnd+1], true
}
