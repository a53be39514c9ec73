// Package caption writes the social post text that accompanies a shared
// certificate. With a Gemini API key it asks the model for a satirical
// caption; without one it fills a template.
package caption

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/civic-certificate/internal/report"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const systemInstruction = `You write short, dry, satirical Instagram captions for "certificates" that
mock neglected civic infrastructure. Be witty, never abusive, never name real
officials. Respond with JSON only: {"caption": string, "hashtags": [string]}.
The caption is at most 300 characters. Give 3 to 6 hashtags without the # sign.`

// contentGenerator is the subset of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Result is the model's structured reply.
type Result struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// Text joins the caption and hashtags into post text.
func (r Result) Text() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Caption))
	if len(r.Hashtags) > 0 {
		b.WriteString("\n\n")
		for i, tag := range r.Hashtags {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("#" + strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		}
	}
	return b.String()
}

// Generator produces captions.
type Generator struct {
	models contentGenerator
	model  string
}

// New creates a Generator. An empty apiKey yields a template-only generator.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		log.Debug().Msg("No Gemini API key, captions will use the template")
		return &Generator{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Generator{models: client.Models, model: model}, nil
}

// Caption returns post text for rep. Model failures fall back to the
// template so sharing never blocks on caption generation.
func (g *Generator) Caption(ctx context.Context, rep report.IssueReport) (string, error) {
	if g.models == nil {
		return Template(rep), nil
	}

	result, err := g.generate(ctx, rep)
	if err != nil {
		log.Warn().Err(err).Str("model", g.model).Msg("Caption generation failed, using template")
		return Template(rep), nil
	}
	return result.Text(), nil
}

func (g *Generator) generate(ctx context.Context, rep report.IssueReport) (*Result, error) {
	parts := []*genai.Part{}
	if rep.CapturedImage != nil && len(rep.CapturedImage.Data) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: rep.CapturedImage.MIMEType, Data: rep.CapturedImage.Data},
		})
	}
	parts = append(parts, &genai.Part{Text: buildPrompt(rep)})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		ResponseMIMEType:  "application/json",
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{{Role: "user", Parts: parts}}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	text := resp.Text()
	log.Debug().
		Str("model", g.model).
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Gemini caption response received")

	result, err := parseResult(text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Caption) == "" {
		return nil, fmt.Errorf("model returned an empty caption")
	}
	return &result, nil
}

func buildPrompt(rep report.IssueReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue: %s\n", rep.IssueType)
	if rep.Location != nil {
		fmt.Fprintf(&b, "Address: %s\n", rep.Location.Address)
	}
	if rep.Region != "" {
		fmt.Fprintf(&b, "Region: %s\n", rep.Region)
	}
	b.WriteString("Write the caption for this certificate.")
	return b.String()
}

// Template builds a caption without a model.
func Template(rep report.IssueReport) string {
	where := "somewhere near you"
	if rep.Location != nil && rep.Location.Address != "" && rep.Location.Address != report.AddressNotFound {
		where = rep.Location.Address
	}

	issue := strings.ToLower(string(rep.IssueType))
	if issue == "" {
		issue = "civic issue"
	}

	tags := []string{"CivicCertificate", "FixMyStreet", tagify(string(rep.IssueType))}
	if rep.Region != "" {
		tags = append(tags, tagify(rep.Region))
	}
	return Result{
		Caption:  fmt.Sprintf("Officially certified: a magnificent %s at %s. Still waiting for someone to notice.", issue, where),
		Hashtags: tags,
	}.Text()
}

func tagify(s string) string {
	var b strings.Builder
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) {
		b.WriteString(strings.ToUpper(w[:1]) + w[1:])
	}
	return b.String()
}
