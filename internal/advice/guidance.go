// Package advice maps an AQI category to health guidance and answers
// free-form questions through a generative advisor, falling back to the
// static guidance when the advisor is unavailable.
package advice

import "github.com/couchcryptid/air-quality-service/internal/domain"

// Guidance is the static recommendation set for one category.
type Guidance struct {
	HealthEffects         string `json:"health_effects"`
	GeneralPopulation     string `json:"general_population"`
	SensitiveGroups       string `json:"sensitive_groups"`
	Precautions           string `json:"precautions"`
	GovernmentActions     string `json:"government_actions"`
	OutdoorActivities     string `json:"outdoor_activities"`
	IndoorRecommendations string `json:"indoor_recommendations"`
	LongTermHealth        string `json:"long_term_health"`
}

var guidance = map[domain.AQICategory]Guidance{
	domain.Good: {
		HealthEffects:         "Excellent air quality that meets all EPA national standards. Pollution poses little or no risk to the US population.",
		GeneralPopulation:     "Ideal conditions for all outdoor activities across the United States. Perfect for hiking, sports, and community events. No restrictions needed.",
		SensitiveGroups:       "Completely safe for sensitive populations including children, elderly, pregnant women, and people with asthma, heart, or lung conditions. Normal activities can continue without concern.",
		Precautions:           "No special precautions required under current EPA guidelines. Continue normal daily routines and outdoor exercise programs.",
		GovernmentActions:     "Continue routine federal monitoring through the EPA AirNow network. Maintain public awareness campaigns about maintaining good air quality.",
		OutdoorActivities:     "Perfect for all outdoor activities: hiking, biking, sports, gardening, and community events.",
		IndoorRecommendations: "Normal ventilation recommended. Windows can remain open for fresh air circulation.",
		LongTermHealth:        "No long-term health risks associated with current air quality levels.",
	},
	domain.Moderate: {
		HealthEffects:         "Air quality is acceptable for most people under EPA standards, but there may be moderate health concern for very sensitive individuals.",
		GeneralPopulation:     "Generally acceptable conditions for outdoor activities. Most people will not be affected.",
		SensitiveGroups:       "People with respiratory conditions (asthma, COPD), heart disease, children, and elderly should consider reducing prolonged or heavy outdoor exertion. Watch for symptoms like coughing or shortness of breath.",
		Precautions:           "Sensitive populations should monitor for symptoms. Consider choosing less strenuous outdoor activities or scheduling them for times when air quality is better.",
		GovernmentActions:     "Issue EPA health notices for sensitive groups. Increase state monitoring frequency. Alert healthcare providers to be prepared for increased respiratory complaints.",
		OutdoorActivities:     "Suitable for light to moderate activities. Consider reducing intense exercise duration.",
		IndoorRecommendations: "Good indoor ventilation recommended. Air purifiers not necessary for most homes.",
		LongTermHealth:        "Minimal long-term risk with continued exposure at these levels.",
	},
	domain.UnhealthySensitive: {
		HealthEffects:         "Air quality exceeds EPA recommended levels for sensitive groups. Increased likelihood of adverse effects for vulnerable populations.",
		GeneralPopulation:     "Most residents may experience no immediate effects, but sensitive groups are likely to be affected. The general population should monitor for unusual symptoms.",
		SensitiveGroups:       "Sensitive populations should significantly reduce outdoor activities. People with asthma should keep rescue medication handy. Elderly and children should limit time outdoors.",
		Precautions:           "Consider rescheduling strenuous outdoor activities. Sensitive individuals may benefit from wearing N95 masks if spending extended time outdoors. Keep windows closed during peak pollution hours.",
		GovernmentActions:     "Activate state health advisory systems. Alert hospitals and clinics to prepare for increased respiratory cases. Restrict outdoor activities in schools for sensitive children.",
		OutdoorActivities:     "Limit outdoor exercise to 30-60 minutes. Choose indoor alternatives when possible.",
		IndoorRecommendations: "Keep windows closed during afternoon hours. Consider using air purifiers.",
		LongTermHealth:        "Extended exposure may worsen existing respiratory conditions.",
	},
	domain.Unhealthy: {
		HealthEffects:         "Air quality violates EPA standards. All residents may begin to experience health effects. Sensitive groups experience more serious effects.",
		GeneralPopulation:     "Everyone should reduce prolonged or heavy exertion outdoors. Even healthy individuals may experience coughing, throat irritation, or breathing discomfort.",
		SensitiveGroups:       "Sensitive groups should avoid all prolonged outdoor exertion. Stay indoors as much as possible. Those with pre-existing conditions should monitor symptoms closely.",
		Precautions:           "Wear N95 masks outdoors. Use high-efficiency air purifiers indoors. Keep windows and doors closed. Reschedule non-essential outdoor activities.",
		GovernmentActions:     "Issue federal health warnings to all media outlets. Activate emergency response plans. Consider implementing traffic restrictions in major metropolitan areas.",
		OutdoorActivities:     "Avoid strenuous outdoor activities. Limit essential outdoor time to 15-30 minutes.",
		IndoorRecommendations: "Use HEPA air purifiers. Maintain closed windows. Avoid indoor pollution sources.",
		LongTermHealth:        "Increased risk of respiratory issues with prolonged exposure.",
	},
	domain.VeryUnhealthy: {
		HealthEffects:         "Health emergency conditions: everyone may experience serious health effects from poor air quality.",
		GeneralPopulation:     "Avoid all physical activity outdoors. Cancel or reschedule outdoor events. Even brief exposure can cause health issues.",
		SensitiveGroups:       "Sensitive populations should remain indoors and avoid any physical exertion. Seek medical attention immediately if symptoms occur. Consider temporary relocation if air quality does not improve.",
		Precautions:           "Use high-efficiency air purifiers in all living spaces. Wear N95 masks if going outside is absolutely necessary. Create clean air rooms in homes.",
		GovernmentActions:     "Declare a federal health emergency. Implement industrial production restrictions. Close schools and public facilities. Activate emergency shelters with air filtration.",
		OutdoorActivities:     "All outdoor activities should be cancelled. Essential workers require protective equipment.",
		IndoorRecommendations: "Create clean air sanctuary rooms. Use multiple air purifiers. Seal windows thoroughly.",
		LongTermHealth:        "Significant health risks with any exposure. Medical monitoring recommended.",
	},
}

// For returns the guidance for c. Unknown categories get the Moderate set.
func For(c domain.AQICategory) Guidance {
	if g, ok := guidance[c]; ok {
		return g
	}
	return guidance[domain.Moderate]
}

// Level is the severity of a quick action.
type Level string

const (
	LevelOK      Level = "ok"
	LevelCaution Level = "caution"
	LevelAlert   Level = "alert"
)

// QuickAction is a one-line headline recommendation.
type QuickAction struct {
	Text  string `json:"text"`
	Level Level  `json:"level"`
}

// QuickActions returns the activity, exposure and ventilation headlines.
func QuickActions(c domain.AQICategory) []QuickAction {
	actions := make([]QuickAction, 0, 3)

	if c == domain.Good || c == domain.Moderate {
		actions = append(actions, QuickAction{"Continue normal activities", LevelOK})
	} else {
		actions = append(actions, QuickAction{"Adjust outdoor plans", LevelCaution})
	}

	if c == domain.Unhealthy || c == domain.VeryUnhealthy {
		actions = append(actions, QuickAction{"Limit outdoor exposure", LevelAlert})
	} else {
		actions = append(actions, QuickAction{"Safe for outdoor exercise", LevelOK})
	}

	if c == domain.Good || c == domain.Moderate {
		actions = append(actions, QuickAction{"Normal ventilation sufficient", LevelOK})
	} else {
		actions = append(actions, QuickAction{"Enhance indoor air quality", LevelCaution})
	}
	return actions
}

var checklists = map[domain.AQICategory][]string{
	domain.Good: {
		"Continue all normal activities",
		"Enjoy outdoor exercises and events",
		"Maintain normal indoor ventilation",
		"No special precautions needed",
	},
	domain.Moderate: {
		"Most people can continue normal activities",
		"Sensitive individuals should reduce prolonged exertion",
		"Generally safe for outdoor activities",
		"Monitor for any unusual symptoms",
	},
	domain.UnhealthySensitive: {
		"Sensitive groups should reduce outdoor activities",
		"General population can continue with caution",
		"Keep windows closed during peak hours",
		"Consider masks for sensitive individuals",
	},
	domain.Unhealthy: {
		"Everyone should reduce outdoor exertion",
		"Sensitive groups should stay indoors",
		"Wear N95 masks if going outside",
		"Use air purifiers and keep windows closed",
	},
	domain.VeryUnhealthy: {
		"Avoid all outdoor activities",
		"Stay indoors with windows sealed",
		"Essential outings require N95 masks",
		"Have emergency contacts ready",
	},
}

// Checklist returns the action checklist for c.
func Checklist(c domain.AQICategory) []string {
	return checklists[c]
}

// EmergencyMeasures returns preparedness steps for the two worst categories
// and nil otherwise.
func EmergencyMeasures(c domain.AQICategory) []string {
	if c != domain.Unhealthy && c != domain.VeryUnhealthy {
		return nil
	}
	return []string{
		"Keep emergency medications readily accessible",
		"Have a supply of N95 masks available",
		"Identify clean air shelters in your community",
		"Monitor local emergency alerts regularly",
	}
}

// Sheet bundles everything shown for a prediction's category.
type Sheet struct {
	Category     domain.AQICategory `json:"category"`
	Label        string             `json:"label"`
	Color        string             `json:"color"`
	OverallAQI   float64            `json:"overall_aqi"`
	Guidance     Guidance           `json:"guidance"`
	QuickActions []QuickAction      `json:"quick_actions"`
	Checklist    []string           `json:"checklist"`
	Emergency    []string           `json:"emergency,omitempty"`
}

// SheetFor builds the advice sheet for a prediction.
func SheetFor(r domain.PredictionResult) Sheet {
	return Sheet{
		Category:     r.Category,
		Label:        r.Category.DisplayName(),
		Color:        r.Category.Color(),
		OverallAQI:   r.OverallAQI,
		Guidance:     For(r.Category),
		QuickActions: QuickActions(r.Category),
		Checklist:    Checklist(r.Category),
		Emergency:    EmergencyMeasures(r.Category),
	}
}
