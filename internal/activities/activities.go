package activities

import (
	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/config"
	"github.com/evidentia-ai/evidentia/internal/knowledge"
	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/search"
	"github.com/evidentia-ai/evidentia/internal/webfetch"
)

// Activities holds the external service clients shared by all research
// activities. One instance is registered per worker.
type Activities struct {
	cfg       *config.Research
	gen       *llm.Client
	search    *search.Client
	knowledge *knowledge.Client
	fetcher   *webfetch.Fetcher
	metadata  *webfetch.MetadataClient
	policy    search.Policy
	logger    *zap.Logger
}

// Deps bundles the constructed clients for NewActivities.
type Deps struct {
	Config    *config.Research
	Generator *llm.Client
	Search    *search.Client
	Knowledge *knowledge.Client
	Fetcher   *webfetch.Fetcher
	Metadata  *webfetch.MetadataClient
	Logger    *zap.Logger
}

// NewActivities wires the activity set from its dependencies.
func NewActivities(d Deps) *Activities {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{
		cfg:       d.Config,
		gen:       d.Generator,
		search:    d.Search,
		knowledge: d.Knowledge,
		fetcher:   d.Fetcher,
		metadata:  d.Metadata,
		policy:    search.Policy{AllowedDomains: d.Config.AllowedDomains},
		logger:    logger,
	}
}
