package parser

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/yologdev/yocore/internal/model"
)

// ClaudeCodeParser interprets the JSONL transcript format written by
// Claude Code: one record per line, each either a user, assistant, or tool
// message.
type ClaudeCodeParser struct{}

func NewClaudeCodeParser() *ClaudeCodeParser { return &ClaudeCodeParser{} }

func (p *ClaudeCodeParser) Name() string { return "claude_code" }

// claudeCodeLine is one JSONL record. Content may be a plain string or a
// list of content blocks (the shape Claude Code emits for assistant turns
// that include tool calls).
type claudeCodeLine struct {
	Type string `json:"type"` // "user" | "assistant" | "tool_result" | "summary"
	Timestamp string `json:"timestamp"`
	Message *struct {
		Role string `json:"role"`
		Content json.RawMessage `json:"content"`
		Model string `json:"model"`
		Usage *struct {
			InputTokens int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	ToolUseResult json.RawMessage `json:"toolUseResult"`
}

type contentBlock struct {
	Type string `json:"type"` // "text" | "tool_use" | "tool_result"
	Text string `json:"text"`
	Name string `json:"name"` // tool name, for tool_use blocks
	IsError bool `json:"is_error"`
	Content any `json:"content"` // tool_result content, string or blocks
}

const maxPreviewRunes = 500

var errorKeywords = []string{"error", "exception", "traceback", "failed", "fatal", "panic"}

func (p *ClaudeCodeParser) Parse(r io.Reader, resume ResumePoint) (*ParseResult, error) {
	result := &ParseResult{AITool: "claude-code"}
	seq := resume.MaxSequence
	offset := resume.ByteOffset

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		raw := scanner.Bytes()
		lineLen := int64(len(raw)) + 1 // + newline
		result.Stats.LinesRead++

		var line claudeCodeLine
		if err := json.Unmarshal(raw, &line); err != nil || line.Message == nil {
			result.Stats.LinesSkipped++
			offset += lineLen
			continue
		}

		role := classifyRole(line.Type, line.Message.Role)
		text, hasCode, toolName := extractContent(line.Message.Content)
		if text == "" && toolName == "" {
			// Nothing extractable (e.g. a pure control/summary line); skip
			// without counting it as a decode failure.
			offset += lineLen
			continue
		}

		seq++
		tokens := 0
		if line.Message.Usage != nil {
			tokens = line.Message.Usage.InputTokens + line.Message.Usage.OutputTokens
		}

		msg := model.Message{
			SequenceNum: seq,
			Role: role,
			ContentPreview: truncateUnicode(text, maxPreviewRunes),
			SearchContent: text,
			HasCode: hasCode,
			HasError: hasErrorHeuristic(text),
			ToolName: toolName,
			ByteOffset: offset,
			ByteLength: lineLen,
			Tokens: tokens,
			Model: line.Message.Model,
			Timestamp: parseTimestamp(line.Timestamp),
		}
		result.Messages = append(result.Messages, msg)
		result.Stats.BytesRead += lineLen

		if result.Title == "" && role == model.RoleHuman {
			result.Title = truncateUnicode(strings.TrimSpace(text), 80)
		}

		offset += lineLen
	}
	if err := scanner.Err(); err != nil {
		return result, err
	}

	return result, nil
}

func classifyRole(lineType, msgRole string) model.Role {
	switch {
	case lineType == "tool_result" || msgRole == "tool":
		return model.RoleTool
	case msgRole == "assistant":
		return model.RoleAssistant
	default:
		return model.RoleHuman
	}
}

// extractContent flattens a content field that may be a JSON string or an
// array of content blocks into plain text for search/preview, reporting
// whether a fenced code block was present and the tool name if any block
// was a tool_use.
func extractContent(raw json.RawMessage) (text string, hasCode bool, toolName string) {
	if len(raw) == 0 {
		return "", false, ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, strings.Contains(asString, "```"), ""
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", false, ""
	}

	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			parts = append(parts, b.Text)
			if strings.Contains(b.Text, "```") {
				hasCode = true
			}
		case "tool_use":
			toolName = b.Name
			parts = append(parts, b.Name)
		case "tool_result":
			if s, ok := b.Content.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, "\n"), hasCode, toolName
}

func hasErrorHeuristic(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
