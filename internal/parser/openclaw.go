package parser

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/yologdev/yocore/internal/model"
)

// OpenClawParser implements the same contract as ClaudeCodeParser against
// OpenClaw's flatter record shape.
type OpenClawParser struct{}

func NewOpenClawParser() *OpenClawParser { return &OpenClawParser{} }

func (p *OpenClawParser) Name() string { return "openclaw" }

// openClawLine is OpenClaw's flat per-turn record: no nested "message"
// envelope, role and text are top-level, and tool invocations are reported
// via a separate "tool" field rather than content blocks.
type openClawLine struct {
	Speaker string `json:"speaker"` // "human" | "ai" | "tool"
	Text string `json:"text"`
	Tool string `json:"tool,omitempty"`
	CreatedAt string `json:"created_at"`
	ModelName string `json:"model_name"`
	Tokens int `json:"tokens"`
	Err bool `json:"error,omitempty"`
}

func (p *OpenClawParser) Parse(r io.Reader, resume ResumePoint) (*ParseResult, error) {
	result := &ParseResult{AITool: "openclaw"}
	seq := resume.MaxSequence
	offset := resume.ByteOffset

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		raw := scanner.Bytes()
		lineLen := int64(len(raw)) + 1
		result.Stats.LinesRead++

		var line openClawLine
		if err := json.Unmarshal(raw, &line); err != nil || line.Text == "" {
			result.Stats.LinesSkipped++
			offset += lineLen
			continue
		}

		seq++
		msg := model.Message{
			SequenceNum: seq,
			Role: openClawRole(line.Speaker),
			ContentPreview: truncateUnicode(line.Text, maxPreviewRunes),
			SearchContent: line.Text,
			HasCode: strings.Contains(line.Text, "```"),
			HasError: line.Err || hasErrorHeuristic(line.Text),
			ToolName: line.Tool,
			ByteOffset: offset,
			ByteLength: lineLen,
			Tokens: line.Tokens,
			Model: line.ModelName,
			Timestamp: parseTimestamp(line.CreatedAt),
		}
		result.Messages = append(result.Messages, msg)
		result.Stats.BytesRead += lineLen

		if result.Title == "" && msg.Role == model.RoleHuman {
			result.Title = truncateUnicode(strings.TrimSpace(line.Text), 80)
		}

		offset += lineLen
	}
	if err := scanner.Err(); err != nil {
		return result, err
	}

	return result, nil
}

func openClawRole(speaker string) model.Role {
	switch speaker {
	case "ai":
		return model.RoleAssistant
	case "tool":
		return model.RoleTool
	default:
		return model.RoleHuman
	}
}
