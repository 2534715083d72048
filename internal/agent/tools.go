package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahrie-ai/backend/internal/i18n"
	"github.com/ahrie-ai/backend/internal/models"
	"github.com/ahrie-ai/backend/internal/service"
)

const defaultArea = "Gangnam"

// Areas recognised in messages, checked in order.
var areaAliases = []struct {
	alias string
	area  string
}{
	{"gangnam", "Gangnam"},
	{"강남", "Gangnam"},
	{"itaewon", "Itaewon"},
	{"이태원", "Itaewon"},
	{"myeongdong", "Jung"},
	{"명동", "Jung"},
	{"hongdae", "Mapo"},
	{"홍대", "Mapo"},
}

// Everyday words that point at a catalog procedure, keyed by a fragment of
// the procedure's English name.
var procedureAliases = map[string][]string{
	"rhinoplasty": {"nose", "أنف", "코"},
	"eyelid":      {"eyelid", "eye", "عين", "جفن", "쌍꺼풀", "눈"},
	"contouring":  {"v-line", "jaw", "فك", "윤곽"},
	"botox":       {"wrinkle", "بوتوكس", "보톡스"},
}

var culturalTips = map[string]string{
	"hospital_etiquette": "Korean hospitals are very clean. Remove shoes when entering patient rooms. Visiting hours are usually restricted.",
	"communication":      "Many doctors speak English. For Arabic, request a translator in advance.",
	"payment":            "Most clinics accept cash and cards. Some offer payment plans for larger procedures.",
}

var prayerFacilities = map[string]string{
	"Gangnam": "Seoul Central Mosque is 20 minutes away. Some clinics have prayer rooms.",
	"Itaewon": "Seoul Central Mosque is nearby (5-10 minutes).",
	"Jung":    "Prayer room at Lotte Department Store B1, with halal restaurants nearby.",
}

var (
	positiveWords = []string{"excellent", "amazing", "satisfied", "happy", "recommend", "ممتاز", "راضية", "만족", "추천"}
	negativeWords = []string{"disappointed", "painful", "expensive", "regret", "poor", "مؤلم", "ندم", "후회", "실망"}
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Sentiment is a keyword sentiment score in [-1, 1].
type Sentiment struct {
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Score    float64 `json:"score"`
	Label    string  `json:"label"`
}

// ScoreSentiment counts positive and negative keywords in text.
func ScoreSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	var s Sentiment
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			s.Positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			s.Negative++
		}
	}
	if total := s.Positive + s.Negative; total > 0 {
		s.Score = float64(s.Positive-s.Negative) / float64(total)
	}
	switch {
	case s.Positive > s.Negative:
		s.Label = SentimentPositive
	case s.Negative > s.Positive:
		s.Label = SentimentNegative
	default:
		s.Label = SentimentNeutral
	}
	return s
}

// CulturalTip returns advice for topic, or the list of known topics.
func CulturalTip(topic string) string {
	if tip, ok := culturalTips[strings.ToLower(topic)]; ok {
		return tip
	}
	return "Please specify a topic: hospital_etiquette, communication, or payment"
}

// PrayerFacilities describes prayer options around area.
func PrayerFacilities(area string) string {
	if f, ok := prayerFacilities[area]; ok {
		return f
	}
	return "Please specify a location in Seoul"
}

// DetectArea returns the known Seoul area mentioned earliest in message.
func DetectArea(message string) (string, bool) {
	lower := strings.ToLower(message)
	area, at := "", -1
	for _, a := range areaAliases {
		if i := strings.Index(lower, a.alias); i >= 0 && (at < 0 || i < at) {
			area, at = a.area, i
		}
	}
	return area, at >= 0
}

// Tools runs deterministic lookups against the catalog before the model is prompted.
type Tools struct {
	catalog service.ICatalogService
	now     func() time.Time
}

// NewTools creates the tool set over catalog.
func NewTools(catalog service.ICatalogService) *Tools {
	return &Tools{catalog: catalog, now: time.Now}
}

// MatchProcedures returns catalog procedures named or alluded to in message.
func (t *Tools) MatchProcedures(ctx context.Context, message string) ([]models.Procedure, error) {
	all, err := t.catalog.ListProcedures(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(message)
	var out []models.Procedure
	for _, p := range all {
		if procedureMentioned(lower, &p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func procedureMentioned(lower string, p *models.Procedure) bool {
	for _, name := range []string{p.Name, p.NameAr, p.NameKo} {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	name := strings.ToLower(p.Name)
	for fragment, aliases := range procedureAliases {
		if !strings.Contains(name, fragment) {
			continue
		}
		for _, a := range aliases {
			if strings.Contains(lower, a) {
				return true
			}
		}
	}
	return false
}

// FindClinics searches clinics honoring the session's cultural requirements
// and records the results as recommendations.
func (t *Tools) FindClinics(ctx context.Context, sess *Session, specialty string) ([]models.Clinic, error) {
	clinics, err := t.catalog.FindClinics(ctx, service.ClinicFilter{
		Specialty:     specialty,
		District:      sess.UserProfile.Location,
		HalalFriendly: sess.CulturalRequirements.HalalRequired,
		FemaleStaff:   sess.CulturalRequirements.FemaleDoctorPreferred,
		Limit:         3,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range clinics {
		sess.RecommendClinic(c.Name)
	}
	return clinics, nil
}

// HalalPlaces lists halal places in area, defaulting to Gangnam.
func (t *Tools) HalalPlaces(ctx context.Context, area string) ([]models.HalalPlace, error) {
	if area == "" {
		area = defaultArea
	}
	return t.catalog.HalalPlaces(ctx, service.HalalFilter{District: area, Limit: 5})
}

// AnalyzeReviews scores the most helpful reviews of a clinic and records the insight.
func (t *Tools) AnalyzeReviews(ctx context.Context, sess *Session, clinic *models.Clinic) (*ReviewInsight, error) {
	reviews, err := t.catalog.ReviewsFor(ctx, clinic.ID, 0, 5)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, nil
	}

	var text strings.Builder
	for _, r := range reviews {
		text.WriteString(r.Title)
		text.WriteByte(' ')
		text.WriteString(r.Content)
		text.WriteByte(' ')
		text.WriteString(r.Pros)
		text.WriteByte(' ')
		text.WriteString(r.Cons)
		text.WriteByte('\n')
	}
	s := ScoreSentiment(text.String())

	insight := ReviewInsight{
		Subject:   clinic.Name,
		Reviews:   len(reviews),
		Score:     s.Score,
		Label:     s.Label,
		Timestamp: t.now(),
	}
	sess.AnalyzedReviews = append(sess.AnalyzedReviews, insight)
	sess.SessionNotes = append(sess.SessionNotes, fmt.Sprintf("review_insight: %s %s (%d reviews)", clinic.Name, s.Label, len(reviews)))
	return &insight, nil
}

// ApplyIntent updates the session profile, interests and cultural requirements.
func ApplyIntent(sess *Session, in Intent, message string, procedures []models.Procedure) {
	lower := strings.ToLower(message)

	if area, ok := DetectArea(message); ok {
		sess.UserProfile.Location = area
	}
	if in.Has(IntentFemaleSpecific) {
		sess.CulturalRequirements.FemaleDoctorPreferred = true
	}
	if in.Has(IntentCultural) {
		if strings.Contains(lower, "halal") || strings.Contains(lower, "حلال") {
			sess.CulturalRequirements.HalalRequired = true
		}
		for _, kw := range []string{"prayer", "صلاة", "mosque", "مسجد"} {
			if strings.Contains(lower, kw) {
				sess.CulturalRequirements.PrayerFacilitiesNeeded = true
				break
			}
		}
	}
	for _, p := range procedures {
		sess.AddInterest(p.Name)
	}
}

// Run gathers catalog context for the detected intents. Lookup failures
// are skipped so the model can still answer.
func (t *Tools) Run(ctx context.Context, sess *Session, in Intent, message, lang string) []string {
	var blocks []string

	procedures, err := t.MatchProcedures(ctx, message)
	if err == nil {
		ApplyIntent(sess, in, message, procedures)
	} else {
		ApplyIntent(sess, in, message, nil)
	}

	if len(procedures) > 0 {
		var b strings.Builder
		b.WriteString("Procedures from our catalog:\n")
		for _, p := range procedures {
			b.WriteString(describeProcedure(&p))
		}
		blocks = append(blocks, b.String())
	}

	var clinics []models.Clinic
	if in.Has(IntentMedical) || in.Has(IntentFemaleSpecific) || in.Has(IntentReview) {
		specialty := ""
		if len(procedures) > 0 {
			specialty = procedures[0].Name
		}
		clinics, err = t.FindClinics(ctx, sess, specialty)
		if err == nil && len(clinics) > 0 {
			var b strings.Builder
			b.WriteString("Matching clinics:\n")
			for _, c := range clinics {
				b.WriteString(describeClinic(&c))
			}
			blocks = append(blocks, b.String())
		}
	}

	if in.Has(IntentCultural) {
		area := sess.UserProfile.Location
		places, err := t.HalalPlaces(ctx, area)
		if err == nil && len(places) > 0 {
			var b strings.Builder
			b.WriteString("Halal places:\n")
			for _, p := range places {
				fmt.Fprintf(&b, "- %s (%s, %s", p.LocalizedName(lang), p.Type, p.District)
				if p.Certification != "" {
					fmt.Fprintf(&b, ", certified %s", p.Certification)
				}
				b.WriteString(")\n")
			}
			blocks = append(blocks, b.String())
		}
		if sess.CulturalRequirements.PrayerFacilitiesNeeded {
			if area == "" {
				area = defaultArea
			}
			blocks = append(blocks, "Prayer facilities: "+PrayerFacilities(area))
		}
		blocks = append(blocks, "Cultural tip: "+CulturalTip("hospital_etiquette"))
	}

	if in.Has(IntentReview) && len(clinics) > 0 {
		if insight, err := t.AnalyzeReviews(ctx, sess, &clinics[0]); err == nil && insight != nil {
			blocks = append(blocks, fmt.Sprintf("Review analysis for %s: %d reviews, %s sentiment (score %.2f).",
				insight.Subject, insight.Reviews, insight.Label, insight.Score))
		}
	}

	return blocks
}

func describeProcedure(p *models.Procedure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s", p.Name)
	if p.DurationMax > 0 {
		fmt.Fprintf(&b, ", %d-%d min", p.DurationMin, p.DurationMax)
	}
	if p.RecoveryDaysMax > 0 {
		fmt.Fprintf(&b, ", recovery %d-%d days", p.RecoveryDaysMin, p.RecoveryDaysMax)
	}
	if p.PriceRangeMax > 0 {
		fmt.Fprintf(&b, ", %s-%s",
			i18n.FormatCurrency(p.PriceRangeMin, "USD", "en"),
			i18n.FormatCurrency(p.PriceRangeMax, "USD", "en"))
	}
	b.WriteByte('\n')
	return b.String()
}

func describeClinic(c *models.Clinic) string {
	var features []string
	if c.FemaleStaffAvailable {
		features = append(features, "female doctors")
	}
	if c.HalalFriendly {
		features = append(features, "halal friendly")
	}
	if c.ArabicSupport {
		features = append(features, "Arabic support")
	}
	line := fmt.Sprintf("- %s (%s), rating %.1f from %d reviews", c.Name, c.District, c.Rating, c.ReviewCount)
	if len(features) > 0 {
		line += ", " + strings.Join(features, ", ")
	}
	return line + "\n"
}
