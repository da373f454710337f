package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

// Tool names.
const (
	FindMemoryToCorrect = "find_memory_to_correct"
	CorrectMemory       = "correct_memory"
)

// TargetFinder resolves the memory a correction refers to.
type TargetFinder interface {
	FindCorrectionTarget(ctx context.Context, coupleID, message string) (*memory.Memory, error)
}

// CorrectionApplier executes a decided correction.
type CorrectionApplier interface {
	ApplyCorrection(ctx context.Context, memoryID string, newContent *string) (memory.CorrectionResult, error)
}

// ── find_memory_to_correct ───────────────────────────────────────────────────

type findInput struct {
	Message string `json:"message" jsonschema:"minLength=1" jsonschema_description:"The user message that may correct a remembered fact, verbatim."`
}

// Target is the memory view returned to the model.
type Target struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Visibility string `json:"visibility"`
	AuthorID   string `json:"author_id,omitempty"`
	Content    string `json:"content"`
}

type findOutput struct {
	IsCorrection bool            `json:"is_correction"`
	Strength     memory.Strength `json:"strength"`
	Target       *Target         `json:"target"`
}

var findSchema = mustReflectSchema[findInput](FindMemoryToCorrect)

// FindTargetTool detects whether a message is a correction and locates the
// stored memory it most likely refers to, within the session's couple.
type FindTargetTool struct {
	finder TargetFinder
}

// NewFindTargetTool creates the find_memory_to_correct tool.
func NewFindTargetTool(finder TargetFinder) *FindTargetTool {
	return &FindTargetTool{finder: finder}
}

func (t *FindTargetTool) Definition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDef{
			Name: FindMemoryToCorrect,
			Description: "Check whether the user's message corrects something you remember " +
				"and return the stored memory it most likely refers to. " +
				"target is null when no stored memory matches.",
			Parameters: findSchema.raw,
		},
	}
}

// Execute runs the resolver even when detection finds no correction signal;
// the model asked explicitly and may have context the heuristics lack.
func (t *FindTargetTool) Execute(ctx context.Context, session memory.SessionContext, args json.RawMessage) (string, error) {
	var in findInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, FindMemoryToCorrect, err)
	}

	signal := memory.DetectCorrection(in.Message)
	target, err := t.finder.FindCorrectionTarget(ctx, session.CoupleID, in.Message)
	if err != nil {
		return "", fmt.Errorf("tools: %s: %w", FindMemoryToCorrect, err)
	}

	out := findOutput{IsCorrection: signal.IsCorrection, Strength: signal.Strength}
	if target != nil {
		out.Target = &Target{
			ID:         target.ID,
			Category:   string(target.Category),
			Visibility: string(target.Visibility),
			AuthorID:   target.AuthorID,
			Content:    target.Content,
		}
	}
	return encodeResult(out)
}

// ── correct_memory ───────────────────────────────────────────────────────────

type correctInput struct {
	MemoryID   string `json:"memory_id" jsonschema:"minLength=1" jsonschema_description:"ID of the memory returned by find_memory_to_correct."`
	Action     string `json:"action" jsonschema:"enum=update,enum=delete" jsonschema_description:"update rewrites the memory; delete removes it."`
	NewContent string `json:"new_content,omitempty" jsonschema_description:"Replacement text. Required when action is update."`
}

var correctSchema = mustReflectSchema[correctInput](CorrectMemory)

// CorrectTool updates or deletes a memory the model decided to correct.
type CorrectTool struct {
	applier CorrectionApplier
}

// NewCorrectTool creates the correct_memory tool.
func NewCorrectTool(applier CorrectionApplier) *CorrectTool {
	return &CorrectTool{applier: applier}
}

func (t *CorrectTool) Definition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDef{
			Name: CorrectMemory,
			Description: "Apply a correction to a stored memory: rewrite its content " +
				"with the corrected fact or delete it when the fact no longer holds.",
			Parameters: correctSchema.raw,
		},
	}
}

func (t *CorrectTool) Execute(ctx context.Context, _ memory.SessionContext, args json.RawMessage) (string, error) {
	var in correctInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, CorrectMemory, err)
	}

	var newContent *string
	switch in.Action {
	case "delete":
	case "update":
		content := strings.TrimSpace(in.NewContent)
		if content == "" {
			return "", fmt.Errorf("%w: %s: new_content is required for update", ErrInvalidArguments, CorrectMemory)
		}
		newContent = &content
	default:
		return "", fmt.Errorf("%w: %s: unknown action %q", ErrInvalidArguments, CorrectMemory, in.Action)
	}

	result, err := t.applier.ApplyCorrection(ctx, in.MemoryID, newContent)
	if err != nil {
		return "", fmt.Errorf("tools: %s: %w", CorrectMemory, err)
	}
	return encodeResult(result)
}

// Default returns a registry with both correction tools registered.
func Default(finder TargetFinder, applier CorrectionApplier) *Registry {
	r := NewRegistry()
	r.Register(NewFindTargetTool(finder))
	r.Register(NewCorrectTool(applier))
	return r
}

var (
	_ Tool = (*FindTargetTool)(nil)
	_ Tool = (*CorrectTool)(nil)
)
