package language

import "strings"

// Auto asks the transcriber to detect the spoken language itself.
const Auto = "auto"

type entry struct {
	code2   string
	code3   string
	alt3    string
	display string
	word    string
}

var languages = []entry{
	{"en", "eng", "", "English", "english"},
	{"es", "spa", "", "Spanish", "spanish"},
	{"fr", "fra", "fre", "French", "french"},
	{"de", "deu", "ger", "German", "german"},
	{"it", "ita", "", "Italian", "italian"},
	{"pt", "por", "", "Portuguese", "portuguese"},
	{"ja", "jpn", "", "Japanese", "japanese"},
	{"ko", "kor", "", "Korean", "korean"},
	{"zh", "zho", "chi", "Chinese", "chinese"},
	{"ru", "rus", "", "Russian", "russian"},
	{"ar", "ara", "", "Arabic", "arabic"},
	{"hi", "hin", "", "Hindi", "hindi"},
	{"nl", "nld", "dut", "Dutch", "dutch"},
	{"pl", "pol", "", "Polish", "polish"},
	{"sv", "swe", "", "Swedish", "swedish"},
	{"da", "dan", "", "Danish", "danish"},
	{"no", "nor", "", "Norwegian", "norwegian"},
	{"fi", "fin", "", "Finnish", "finnish"},
	{"tr", "tur", "", "Turkish", "turkish"},
	{"uk", "ukr", "", "Ukrainian", "ukrainian"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[e.code3] = e
		m[e.word] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
	}
	return m
}()

func lookup(code string) *entry {
	return index[strings.ToLower(strings.TrimSpace(code))]
}

// Normalize maps a code, three-letter code, English word or locale tag
// ("en-US", "pt_BR") to the ISO 639-1 code. "auto" passes through. Unknown
// two-letter codes pass through lowercased; anything else yields "".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if code == Auto {
		return Auto
	}
	if base, _, ok := strings.Cut(strings.ReplaceAll(code, "_", "-"), "-"); ok {
		code = base
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// FromVoice extracts the language of a locale-prefixed voice name such as
// "en-US-AriaNeural". Voices without a locale prefix yield "".
func FromVoice(voice string) string {
	parts := strings.Split(strings.TrimSpace(voice), "-")
	if len(parts) < 3 {
		return ""
	}
	return Normalize(parts[0])
}

// DisplayName returns the English name of a recognized code.
func DisplayName(code string) string {
	switch normalized := Normalize(code); {
	case normalized == "":
		return "Unknown"
	case normalized == Auto:
		return "Auto-detect"
	default:
		if e := lookup(normalized); e != nil {
			return e.display
		}
		return strings.ToUpper(normalized)
	}
}
