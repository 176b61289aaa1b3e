package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/pkg/response"
)

// RulesHandler exposes the effective rule set so operators can see what
// the next run will check without reading config files.
type RulesHandler struct {
	cfg    *config.Config
	engine *services.RuleEngineService
}

func NewRulesHandler(cfg *config.Config) *RulesHandler {
	return &RulesHandler{cfg: cfg, engine: services.NewRuleEngineService()}
}

// List returns the resolved rules in deterministic order.
// GET /api/rules
func (h *RulesHandler) List(c *gin.Context) {
	rules, err := h.engine.EffectiveRules(&h.cfg.Review)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"prompt_version": services.PromptVersion,
		"rules":          rules,
	})
}
