package analysis

import "github.com/franckalain/fooddiary/internal/ml"

const itemSystemPrompt = `You are a nutrition analysis assistant. Extract the name and the calories of a single food item.
Be consistent: for the same description always return the same calorie value. Answer ONLY with the JSON object.`

const feedbackSystemPrompt = `You are a virtual nutritionist. Give helpful, encouraging feedback about the described meal.
Focus on an overall analysis and one practical suggestion. Answer ONLY with the JSON object.`

var foodItemSchema = &ml.Schema{
	Type: ml.TypeObject,
	Properties: map[string]*ml.Schema{
		"name": {
			Type:        ml.TypeString,
			Description: "Name of the food item.",
		},
		"calories": {
			Type:        ml.TypeInteger,
			Description: "Estimated calories of the food item, rounded to the nearest integer.",
		},
	},
	Required: []string{"name", "calories"},
}

var feedbackSchema = &ml.Schema{
	Type:        ml.TypeObject,
	Description: "Structured nutritional feedback about the meal.",
	Properties: map[string]*ml.Schema{
		"title": {
			Type:        ml.TypeString,
			Description: "A short, positive and encouraging title (e.g. 'Great source of protein!').",
		},
		"analysis": {
			Type:        ml.TypeString,
			Description: "A 2-3 sentence analysis of the strengths and weak points of the meal.",
		},
		"suggestion": {
			Type:        ml.TypeString,
			Description: "One practical, specific suggestion to align the meal with common health goals such as weight loss or muscle gain.",
		},
	},
	Required: []string{"title", "analysis", "suggestion"},
}

// Item calls use deterministic sampling so the same text tends to get the
// same calorie estimate.
var (
	itemSampling = ml.Sampling{
		Temperature: ml.Ptr[float32](0),
		TopK:        ml.Ptr[int32](1),
		Seed:        ml.Ptr[int32](42),
	}
	feedbackSampling = ml.Sampling{
		Temperature: ml.Ptr[float32](0.7),
	}
)
