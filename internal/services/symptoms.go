package services

import (
	"math"
	"sort"
	"strings"

	"github.com/harentsoaR/healthcare-api/internal/models"
)

const SymptomDisclaimer = "This analysis is informational only and is not a medical diagnosis. " +
	"Consult a qualified healthcare professional for medical advice."

const maxConditions = 5

type condition struct {
	name      string
	specialty string
	urgency   string
	weights   map[string]float64
}

var conditionTable = []condition{
	{"Common cold", "general-practice", models.UrgencyLow, map[string]float64{
		"runny nose": 3, "sneezing": 2, "sore throat": 2, "cough": 1, "congestion": 2, "mild fever": 1,
	}},
	{"Influenza", "general-practice", models.UrgencyModerate, map[string]float64{
		"fever": 3, "body aches": 3, "fatigue": 2, "cough": 2, "chills": 2, "headache": 1, "sore throat": 1,
	}},
	{"COVID-19", "general-practice", models.UrgencyModerate, map[string]float64{
		"fever": 2, "cough": 2, "loss of taste": 3, "loss of smell": 3, "fatigue": 1, "shortness of breath": 2,
	}},
	{"Migraine", "neurology", models.UrgencyModerate, map[string]float64{
		"headache": 3, "nausea": 2, "sensitivity to light": 3, "blurred vision": 1, "dizziness": 1,
	}},
	{"Gastroenteritis", "gastroenterology", models.UrgencyModerate, map[string]float64{
		"diarrhea": 3, "nausea": 2, "vomiting": 3, "abdominal pain": 2, "fever": 1,
	}},
	{"Appendicitis", "general-surgery", models.UrgencyHigh, map[string]float64{
		"abdominal pain": 3, "lower right abdominal pain": 4, "nausea": 1, "vomiting": 1, "fever": 1, "loss of appetite": 2,
	}},
	{"Urinary tract infection", "urology", models.UrgencyModerate, map[string]float64{
		"painful urination": 4, "frequent urination": 3, "lower abdominal pain": 2, "cloudy urine": 2, "fever": 1,
	}},
	{"Hypertension", "cardiology", models.UrgencyModerate, map[string]float64{
		"headache": 1, "dizziness": 2, "blurred vision": 2, "nosebleed": 2, "chest pain": 1,
	}},
	{"Angina", "cardiology", models.UrgencyHigh, map[string]float64{
		"chest pain": 4, "shortness of breath": 2, "fatigue": 1, "dizziness": 1, "nausea": 1,
	}},
	{"Asthma", "pulmonology", models.UrgencyModerate, map[string]float64{
		"wheezing": 4, "shortness of breath": 3, "cough": 2, "chest tightness": 3,
	}},
	{"Allergic rhinitis", "allergy-immunology", models.UrgencyLow, map[string]float64{
		"sneezing": 3, "itchy eyes": 3, "runny nose": 2, "congestion": 2,
	}},
	{"Dermatitis", "dermatology", models.UrgencyLow, map[string]float64{
		"rash": 4, "itching": 3, "dry skin": 2, "redness": 2,
	}},
	{"Anxiety disorder", "psychiatry", models.UrgencyLow, map[string]float64{
		"anxiety": 4, "palpitations": 2, "insomnia": 2, "restlessness": 2, "shortness of breath": 1,
	}},
	{"Type 2 diabetes", "endocrinology", models.UrgencyModerate, map[string]float64{
		"excessive thirst": 3, "frequent urination": 3, "fatigue": 1, "blurred vision": 1, "weight loss": 2,
	}},
}

// Symptoms that warrant emergency care whatever else matched.
var redFlags = []string{
	"chest pain", "difficulty breathing", "loss of consciousness", "seizure",
	"severe bleeding", "slurred speech", "facial drooping", "coughing blood",
	"suicidal thoughts", "severe allergic reaction",
}

var urgencyRank = map[string]int{
	models.UrgencyLow:       0,
	models.UrgencyModerate:  1,
	models.UrgencyHigh:      2,
	models.UrgencyEmergency: 3,
}

var urgencyAdvice = map[string]string{
	models.UrgencyLow:       "Rest, stay hydrated and book a routine visit if symptoms persist.",
	models.UrgencyModerate:  "Book an appointment with a doctor in the next few days.",
	models.UrgencyHigh:      "See a doctor today.",
	models.UrgencyEmergency: "Seek emergency care immediately.",
}

// SymptomAnalyzer scores free-text symptoms against a static condition
// table. Score is matched weight over the condition's total weight.
type SymptomAnalyzer struct {
	conditions []condition
}

func NewSymptomAnalyzer() *SymptomAnalyzer {
	return &SymptomAnalyzer{conditions: conditionTable}
}

func (a *SymptomAnalyzer) Analyze(symptoms []string, age int) models.SymptomAnalysis {
	normalized := normalizeSymptoms(symptoms)

	recognized := make(map[string]bool, len(normalized))
	var matches []models.ConditionMatch
	for _, cond := range a.conditions {
		var total, matched float64
		var hits []string
		for keyword, w := range cond.weights {
			total += w
			for _, s := range normalized {
				if symptomMatches(s, keyword) {
					matched += w
					hits = append(hits, keyword)
					recognized[s] = true
					break
				}
			}
		}
		if matched == 0 {
			continue
		}
		sort.Strings(hits)
		matches = append(matches, models.ConditionMatch{
			Condition:       cond.name,
			Score:           math.Round(matched/total*100) / 100,
			MatchedSymptoms: hits,
			Specialty:       cond.specialty,
			Urgency:         cond.urgency,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Condition < matches[j].Condition
	})
	if len(matches) > maxConditions {
		matches = matches[:maxConditions]
	}

	var flags []string
	for _, s := range normalized {
		for _, rf := range redFlags {
			if symptomMatches(s, rf) {
				flags = append(flags, rf)
				recognized[s] = true
				break
			}
		}
	}

	urgency := models.UrgencyLow
	if len(matches) > 0 {
		urgency = matches[0].Urgency
	}
	if (age >= 65 || (age > 0 && age < 2)) && urgencyRank[urgency] < urgencyRank[models.UrgencyHigh] {
		urgency = raise(urgency)
	}
	if len(flags) > 0 {
		urgency = models.UrgencyEmergency
	}

	unrecognized := []string{}
	for _, s := range normalized {
		if !recognized[s] {
			unrecognized = append(unrecognized, s)
		}
	}
	if matches == nil {
		matches = []models.ConditionMatch{}
	}
	if flags == nil {
		flags = []string{}
	}

	return models.SymptomAnalysis{
		Conditions:   matches,
		Urgency:      urgency,
		RedFlags:     flags,
		Unrecognized: unrecognized,
		Advice:       urgencyAdvice[urgency],
		Disclaimer:   SymptomDisclaimer,
	}
}

func raise(urgency string) string {
	for u, r := range urgencyRank {
		if r == urgencyRank[urgency]+1 {
			return u
		}
	}
	return urgency
}

func normalizeSymptoms(symptoms []string) []string {
	seen := make(map[string]bool, len(symptoms))
	out := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// symptomMatches accepts exact phrases and phrases that embed the keyword,
// so "severe chest pain" matches "chest pain".
func symptomMatches(symptom, keyword string) bool {
	return symptom == keyword || strings.Contains(" "+symptom+" ", " "+keyword+" ")
}
