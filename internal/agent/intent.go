package agent

import "strings"

// Intent categories.
const (
	IntentMedical        = "medical"
	IntentCultural       = "cultural"
	IntentReview         = "review"
	IntentLocation       = "location"
	IntentFemaleSpecific = "female_specific"
)

// Response types used to pick a follow-up keyboard.
const (
	ResponseMedical  = "medical_consultation"
	ResponseCultural = "cultural_etiquette"
	ResponseReview   = "review_analysis"
	ResponseGeneral  = "general"
)

// Complexity levels.
const (
	ComplexitySimple  = "simple"
	ComplexityMulti   = "multi"
	ComplexityComplex = "complex"
)

type intentKeywords struct {
	intent   string
	keywords []string
}

// Ordered so that detected intents are always reported in the same order.
var intentTable = []intentKeywords{
	{IntentMedical, []string{"surgery", "procedure", "doctor", "clinic", "cost", "nose", "eye", "수술", "의사", "병원"}},
	{IntentCultural, []string{"halal", "حلال", "prayer", "صلاة", "mosque", "muslim", "islamic", "ramadan"}},
	{IntentReview, []string{"review", "experience", "youtube", "video", "후기", "리뷰", "تجربة", "مراجعة"}},
	{IntentLocation, []string{"near", "gangnam", "seoul", "where", "location", "강남", "서울", "أين"}},
	{IntentFemaleSpecific, []string{"female doctor", "여의사", "طبيبة", "woman", "lady", "sister"}},
}

// Intent is the keyword analysis of one user message.
type Intent struct {
	Query               string   `json:"query"`
	Intents             []string `json:"detected_intents"`
	Agents              []string `json:"required_agents"`
	CollaborationNeeded bool     `json:"collaboration_needed"`
	Complexity          string   `json:"complexity"`
	Confidence          float64  `json:"confidence"`
	ResponseType        string   `json:"response_type"`
}

// Has reports whether name was detected.
func (i Intent) Has(name string) bool {
	for _, v := range i.Intents {
		if v == name {
			return true
		}
	}
	return false
}

// Primary is the persona that leads the answer.
func (i Intent) Primary() string {
	if len(i.Agents) == 0 {
		return RoleCoordinator
	}
	return i.Agents[0]
}

// AnalyzeIntent detects intents by case-insensitive keyword match and maps
// them onto the personas that should answer.
func AnalyzeIntent(message string) Intent {
	lower := strings.ToLower(message)

	intents := []string{}
	for _, row := range intentTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				intents = append(intents, row.intent)
				break
			}
		}
	}

	in := Intent{Query: message, Intents: intents}

	var agents []string
	if in.Has(IntentMedical) || in.Has(IntentFemaleSpecific) {
		agents = append(agents, RoleMedicalExpert)
	}
	if in.Has(IntentCultural) {
		agents = append(agents, RoleCulturalAdvisor)
	}
	if in.Has(IntentReview) {
		agents = append(agents, RoleReviewAnalyst)
	}
	// Location alone has no specialist.
	if len(agents) == 0 {
		agents = append(agents, RoleCoordinator)
	}
	in.Agents = agents

	in.CollaborationNeeded = len(intents) > 1
	switch {
	case len(intents) > 2:
		in.Complexity = ComplexityComplex
	case len(intents) > 1:
		in.Complexity = ComplexityMulti
	default:
		in.Complexity = ComplexitySimple
	}
	in.Confidence = float64(len(intents)) / float64(len(intentTable))

	switch {
	case in.Has(IntentMedical):
		in.ResponseType = ResponseMedical
	case in.Has(IntentCultural):
		in.ResponseType = ResponseCultural
	case in.Has(IntentReview):
		in.ResponseType = ResponseReview
	default:
		in.ResponseType = ResponseGeneral
	}
	return in
}
