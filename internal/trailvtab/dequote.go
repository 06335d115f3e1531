package trailvtab

import "strings"

// Dequote strips one layer of SQL quoting from a module argument so that
//
//	CREATE VIRTUAL TABLE t USING traildb("./store")
//
// opens ./store and not a file literally named "./store" with quotes.
//
// Recognized delimiters are ", ', ` and the pair [ ]. Inside the quoted
// span a doubled delimiter stands for one literal delimiter. Text after the
// closing delimiter is dropped; an unterminated span runs to the end of s.
// Any other first character leaves s unchanged.
func Dequote(s string) string {
	if s == "" {
		return s
	}

	q := s[0]
	switch q {
	case '"', '\'', '`':
	case '[':
		q = ']'
	default:
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == q {
			if i+1 < len(s) && s[i+1] == q {
				b.WriteByte(q)
				i++
				continue
			}
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}
