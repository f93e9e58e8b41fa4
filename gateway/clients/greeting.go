package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	"github.com/miadvg/taxrise-gateway/pkg/openrouter"
)

// CallType describes how the conversation started.
const (
	CallInbound  = "inbound"
	CallOutbound = "outbound"
	CallCallback = "callback"
)

// Greeter produces the persona greeting for a call. The deterministic
// templates are always available; when an OpenRouter key is configured the
// wording is polished by the model, and any model failure falls back to the
// template.
type Greeter struct {
	clients *Service
	llm     *openaisdk.Client
	cfg     openrouter.Config
}

func NewGreeter(clients *Service, llm *openaisdk.Client, cfg openrouter.Config) (*Greeter, error) {
	if clients == nil {
		return nil, errors.New("client service is required")
	}
	return &Greeter{clients: clients, llm: llm, cfg: cfg}, nil
}

// Greeting builds the opening line for a call. An unknown caller gets the
// generic persona greeting; lookup failures degrade to it rather than
// surfacing an error mid-call.
func (g *Greeter) Greeting(ctx context.Context, phone, clientName, callType string) (string, error) {
	callType = strings.TrimSpace(callType)
	if callType == "" {
		callType = CallInbound
	}

	var client *contractx.ClientRecord
	if strings.TrimSpace(clientName) == "" {
		found, err := g.clients.LookupByPhone(ctx, phone)
		switch {
		case err == nil:
			client = found
			clientName = found.Name
		case errors.Is(err, contractx.ErrClientNotFound):
			// new or unidentified caller
		default:
			log.Warn().Err(err).Msg("greeting lookup failed; using generic greeting")
		}
	}

	greeting := templateGreeting(clientName, callType, client)

	if g.llm != nil {
		polished, err := g.polish(ctx, greeting)
		if err != nil {
			log.Warn().Err(err).Msg("greeting polish failed; using template")
			return greeting, nil
		}
		return polished, nil
	}

	return greeting, nil
}

func templateGreeting(clientName, callType string, client *contractx.ClientRecord) string {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		switch callType {
		case CallOutbound:
			return "Hi! This is Emily from TaxRise calling. Am I speaking with the person responsible for the tax matters at this number? I'm reaching out to discuss your tax resolution case."
		case CallInbound:
			return "Hi! Thank you for calling TaxRise, where we rise by lifting others. I'm Emily, your virtual tax resolution assistant. May I please get your name and the phone number on your account so I can better assist you today?"
		default:
			return "Hello! This is Emily from TaxRise. How can I help you with your tax resolution needs today?"
		}
	}

	firstName := strings.Fields(clientName)[0]
	switch callType {
	case CallOutbound:
		return fmt.Sprintf("Hi %s! This is Emily from TaxRise calling on a recorded line. Am I speaking with %s? I'm calling to follow up on your tax resolution case.", firstName, clientName)
	case CallCallback:
		return fmt.Sprintf("Hi %s! This is Emily from TaxRise returning your call. Thank you for reaching out to us! How can I help you today?", firstName)
	case CallInbound:
		if client != nil && len(client.Cases) > 0 {
			plural := ""
			if len(client.Cases) > 1 {
				plural = "s"
			}
			return fmt.Sprintf("Hi %s! This is Emily from TaxRise. I can see you have %d active case%s with us. How can I help you today?", firstName, len(client.Cases), plural)
		}
		return fmt.Sprintf("Hi %s! This is Emily from TaxRise, where we rise by lifting others. It's great to hear from you! How can I assist you with your tax resolution needs today?", firstName)
	default:
		return fmt.Sprintf("Hi %s! This is Emily from TaxRise. It's wonderful to speak with you again! How can I help you today?", firstName)
	}
}

func (g *Greeter) polish(ctx context.Context, greeting string) (string, error) {
	resp, err := g.llm.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(g.cfg.Model),
		MaxCompletionTokens: openaisdk.Int(int64(g.cfg.MaxCompletionToken)),
		Temperature:         openaisdk.Float(g.cfg.Temperature),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage("You rephrase call-center greetings so they sound warm and natural when spoken aloud. Keep the same facts, names, and persona. Reply with the greeting only."),
			openaisdk.UserMessage(greeting),
		},
	})
	if err != nil {
		return "", fmt.Errorf("polish greeting: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("polish greeting: empty completion")
	}

	polished := strings.TrimSpace(resp.Choices[0].Message.Content)
	if polished == "" {
		return "", errors.New("polish greeting: blank completion")
	}
	return polished, nil
}
