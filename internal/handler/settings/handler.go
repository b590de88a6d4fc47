package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chat/backend/internal/model/catalog"
	"github.com/zhouzirui/z-chat/backend/pkg/utils"
)

// TemperatureControl describes the sampling temperature slider.
type TemperatureControl struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
}

// Settings is everything the frontend needs to render the page chrome and
// the settings panel.
type Settings struct {
	Title        string                `json:"title"`
	Banner       string                `json:"banner"`
	Models       []catalog.ModelOption `json:"models"`
	DefaultModel string                `json:"defaultModel"`
	Temperature  TemperatureControl    `json:"temperature"`
	AIAvailable  bool                  `json:"aiAvailable"`
}

// Options configures the static parts of the settings payload.
type Options struct {
	Title              string
	Banner             string
	DefaultTemperature float64
	AIAvailable        bool
}

// Handler 设置面板的HTTP处理器
type Handler struct {
	models catalog.Store
	opts   Options
}

// New 创建设置处理器
func New(models catalog.Store, opts Options) *Handler {
	return &Handler{
		models: models,
		opts:   opts,
	}
}

// RegisterRoutes 注册设置相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.handleGetSettings)
	r.Get("/models", h.handleListModels)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, Settings{
		Title:        h.opts.Title,
		Banner:       h.opts.Banner,
		Models:       h.models.List(),
		DefaultModel: h.models.Default().ID,
		Temperature: TemperatureControl{
			Min:     0,
			Max:     1,
			Default: h.opts.DefaultTemperature,
			Step:    0.05,
		},
		AIAvailable: h.opts.AIAvailable,
	})
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.models.List())
}
