// Package geosvc resolves free-form branch addresses into a city, state & country with a
// chat completion model.
package geosvc

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/gjson"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/branch"
)

const (
	resolveTimeout  = 10 * time.Second
	minCountryRatio = 0.75

	systemPrompt = `You extract locations from postal addresses. Answer with a single JSON object ` +
		`{"city": "...", "state": "...", "country": "..."} and nothing else. ` +
		`Use the English country name. Leave a field empty when the address does not tell.`
)

var errNoAnswer = errors.New("no completion returned")

// Completer answers a prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type openaiCompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter returns a Completer over the chat completions API.
func NewOpenAICompleter(conf *core.Config) Completer {
	opts := []option.RequestOption{option.WithAPIKey(conf.OpenAI.APIKey)}
	if conf.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(conf.OpenAI.BaseURL))
	}
	return &openaiCompleter{client: openai.NewClient(opts...), model: conf.OpenAI.Model}
}

func (c *openaiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model: c.model,
	})
	if err != nil {
		return "", errors.Wrap(err, "creating chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errNoAnswer
	}
	return completion.Choices[0].Message.Content, nil
}

// Resolver implements branch.AddressResolver.
type Resolver struct {
	completer Completer
	countries []string
}

var _ branch.AddressResolver = (*Resolver)(nil)

func NewResolver(completer Completer) *Resolver {
	return &Resolver{completer: completer, countries: branch.Countries}
}

func (r *Resolver) Resolve(ctx context.Context, address string) (branch.Region, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	answer, err := r.completer.Complete(ctx, systemPrompt, "Address: "+address)
	if err != nil {
		return branch.Region{}, err
	}
	answer = stripFences(answer)
	if !gjson.Valid(answer) {
		return branch.Region{}, errors.Errorf("unparsable answer %q", answer)
	}

	res := gjson.Parse(answer)
	region := branch.Region{
		City:    strings.TrimSpace(res.Get("city").String()),
		State:   strings.TrimSpace(res.Get("state").String()),
		Country: r.snapCountry(res.Get("country").String()),
	}
	region.Resolved = region.City != "" || region.State != "" || region.Country != ""
	return region, nil
}

// stripFences drops a markdown code fence around the answer.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// snapCountry returns the known country closest to name, or "" when none is close enough.
func (r *Resolver) snapCountry(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if c, ok := branch.CanonicalCountry(name); ok {
		return c
	}

	best, bestRatio := "", 0.0
	a := strings.Split(strings.ToLower(name), "")
	for _, c := range r.countries {
		m := difflib.NewMatcher(a, strings.Split(strings.ToLower(c), ""))
		if ratio := m.Ratio(); ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}
	if bestRatio < minCountryRatio {
		return ""
	}
	return best
}
