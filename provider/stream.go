package provider

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

// streamChunk is one JSON payload from the event stream.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// doneSentinel terminates the event stream; it is a marker, not data.
const doneSentinel = "[DONE]"

// maxLineSize caps a single SSE line. Deltas are small; a line this long
// means the stream is not what we think it is.
const maxLineSize = 1 << 20

// DecodeStream reads an SSE-style chat-completion stream and returns the
// accumulated text. Each content delta is handed to onDelta synchronously,
// in arrival order, before the next line is read. A malformed line is
// logged and skipped so one bad chunk cannot lose the rest of the
// response. DecodeStream holds no state between calls.
//
// The line scanner buffers partial lines internally, so multi-byte
// characters split across network chunks are never decoded early.
func DecodeStream(r io.Reader, logger *slog.Logger, onDelta func(string)) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var acc strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == doneSentinel {
			return acc.String(), nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logger.Warn("skipping malformed stream line", slog.String("err", err.Error()))
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		acc.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return acc.String(), err
	}
	return acc.String(), nil
}
