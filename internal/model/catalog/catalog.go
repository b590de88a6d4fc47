package catalog

// ModelOption is one selectable OpenRouter model exposed to the frontend.
type ModelOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Free  bool   `json:"free"`
}

// DefaultModelID is preselected when a request does not name a model.
const DefaultModelID = "mistralai/mistral-7b-instruct"

// Seed provides the fixed list of free models offered in the settings panel.
func Seed() []ModelOption {
	return []ModelOption{
		{ID: DefaultModelID, Label: "Mistral 7B Instruct", Free: true},
		{ID: "thu-dongfang/zephyr-7b-beta", Label: "Zephyr 7B Beta", Free: true},
		{ID: "undi95/toppy-m-7b", Label: "Toppy M 7B", Free: true},
		{ID: "thebloke/neural-chat-7b-v3-1", Label: "Neural Chat 7B v3.1", Free: true},
		{ID: "google/gemma-7b-it", Label: "Gemma 7B IT", Free: true},
	}
}
