package generators

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"AutoPostAPI/models"
	"AutoPostAPI/utils"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/go-playground/validator/v10"
)

const stubModel = "stub"

var (
	ErrInvalidRequest = errors.New("invalid generation request")
	ErrInvalidContent = errors.New("generated content failed validation")

	hashtagStrip = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

type Config struct {
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	UnsplashAccessKey string
	UnsplashBaseURL   string
	VerifyImages      bool
	StubMode          bool
	Timeout           time.Duration
	MaxRetries        int
	// RetryDelay is the first backoff step; it doubles up to ten times its value.
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Generator produces a caption and image for an occasion. Each call is
// bounded by Config.Timeout as a whole and transient upstream failures are
// retried up to Config.MaxRetries times.
type Generator struct {
	gemini   *GeminiClient
	unsplash *UnsplashClient
	verifier *ImageVerifier
	validate *validator.Validate
	executor failsafe.Executor[*models.GeneratedContent]
	stub     bool
	now      func() time.Time
}

func NewGenerator(cfg Config) *Generator {
	g := &Generator{
		gemini:   NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.HTTPClient),
		unsplash: NewUnsplashClient(cfg.UnsplashAccessKey, cfg.UnsplashBaseURL, cfg.HTTPClient),
		validate: validator.New(),
		executor: newExecutor(cfg.Timeout, cfg.MaxRetries, cfg.RetryDelay),
		stub:     cfg.StubMode,
		now:      time.Now,
	}
	if cfg.VerifyImages {
		g.verifier = NewImageVerifier(cfg.HTTPClient)
	}
	if !g.stub && cfg.GeminiAPIKey == "" {
		utils.Warnf("GEMINI_API_KEY is not set; every generation will fail until it is configured or stub mode is enabled")
	}
	if !g.unsplash.Configured() {
		utils.Warnf("UNSPLASH_ACCESS_KEY is not set; images fall back to placeholders")
	}
	return g
}

func newExecutor(timeLimit time.Duration, maxRetries int, delay time.Duration) failsafe.Executor[*models.GeneratedContent] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	retry := retrypolicy.NewBuilder[*models.GeneratedContent]().
		HandleIf(func(_ *models.GeneratedContent, err error) bool {
			return err != nil && isRetryable(err)
		}).
		WithMaxRetries(maxRetries).
		WithBackoff(delay, 10*delay).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*models.GeneratedContent]) {
			utils.Warnf("Retrying content generation (attempt %d): %v", e.Attempts()+1, e.LastError())
		}).
		Build()

	if timeLimit <= 0 {
		return failsafe.With[*models.GeneratedContent](retry)
	}
	return failsafe.With[*models.GeneratedContent](timeout.New[*models.GeneratedContent](timeLimit), retry)
}

// isRetryable treats network trouble, rate limits and upstream 5xx answers as
// transient. Client errors and invalid output are not retried.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidContent) || errors.Is(err, ErrInvalidRequest) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	return true
}

func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GeneratedContent, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return g.executor.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[*models.GeneratedContent]) (*models.GeneratedContent, error) {
		return g.generateOnce(exec.Context(), req)
	})
}

func (g *Generator) generateOnce(ctx context.Context, req models.GenerationRequest) (*models.GeneratedContent, error) {
	start := g.now()

	var content *models.GeneratedContent
	if g.stub {
		content = g.stubContent(req)
	} else {
		var err error
		if content, err = g.liveContent(ctx, req); err != nil {
			return nil, err
		}
	}

	content.Metadata.GenerationTimeMs = g.now().Sub(start).Milliseconds()
	content.Metadata.GeneratedAt = g.now()

	if err := g.validate.Struct(content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return content, nil
}

func (g *Generator) liveContent(ctx context.Context, req models.GenerationRequest) (*models.GeneratedContent, error) {
	result, err := g.gemini.Complete(ctx, buildCaptionPrompt(req))
	if err != nil {
		return nil, err
	}

	caption, imagePrompt, ok := parseCaption(result.Text, req.Occasion)
	if !ok {
		utils.Warnf("Could not parse caption JSON for %q, using fallback caption", req.Occasion)
	}

	content := &models.GeneratedContent{
		Caption:     truncateCaption(caption),
		ImagePrompt: imagePrompt,
		Metadata: models.GenerationMetadata{
			CaptionModel:  g.gemini.Model(),
			ImageModel:    imageModelUnsplash,
			CaptionUsage:  result.Usage,
			RevisedPrompt: imagePrompt,
		},
	}

	imageURL, err := g.unsplash.SearchImage(ctx, imagePrompt)
	if err != nil {
		utils.Warnf("Unsplash search failed for %q: %v", imagePrompt, err)
	}
	if imageURL != "" && g.verifier != nil {
		if err := g.verifier.Verify(ctx, imageURL); err != nil {
			utils.Warnf("Discarding image for %q: %v", req.Occasion, err)
			imageURL = ""
		}
	}

	if imageURL == "" {
		imageURL = PlaceholderImageURL(req.Occasion)
		content.ImagePrompt = "Placeholder image used for: " + req.Occasion
		content.Metadata.ImageModel = imageModelPlaceholder
		content.Metadata.RevisedPrompt = "N/A (Placeholder used)"
	}
	content.ImageURL = imageURL
	if runes := []rune(content.ImagePrompt); len(runes) > models.MaxImagePromptLength {
		content.ImagePrompt = string(runes[:models.MaxImagePromptLength])
	}
	return content, nil
}

// stubContent builds deterministic content without touching the network.
func (g *Generator) stubContent(req models.GenerationRequest) *models.GeneratedContent {
	caption := fmt.Sprintf("Celebrating %s with our %s community!", req.Occasion, req.Category)
	if hint := strings.TrimSpace(req.PromptHint); hint != "" {
		caption += " " + hint
	}
	if tag := hashtagStrip.ReplaceAllString(req.Occasion, ""); tag != "" {
		caption += " #" + tag
	}

	return &models.GeneratedContent{
		Caption:     truncateCaption(caption),
		ImageURL:    PlaceholderImageURL(req.Occasion),
		ImagePrompt: req.Occasion,
		Metadata: models.GenerationMetadata{
			CaptionModel:  stubModel,
			ImageModel:    imageModelPlaceholder,
			RevisedPrompt: req.Occasion,
		},
	}
}
