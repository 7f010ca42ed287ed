package processor

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"docchat/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// Processor splits parsed documents into retrieval units. Splitting
// happens on structural boundaries (blank-line separated blocks); a
// markdown table extracted by the parser is kept whole when it fits
// under ChunkSize and is otherwise split at row boundaries, never
// mid-row.
type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.MinChunkSize == 0 {
		config.MinChunkSize = 10
	}

	return Processor{
		config: config,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		),
	}
}

func (p *Processor) Process(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for _, doc := range docs {
		texts, err := p.split(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s: %w", doc.Source, err)
		}

		for i, text := range texts {
			chunks = append(chunks, models.Chunk{
				DocumentID: doc.ID,
				Source:     doc.Source,
				PageLabel:  doc.PageLabel,
				Text:       text,
				Index:      i,
			})
		}
	}

	return chunks, nil
}

func (p *Processor) split(content string) ([]string, error) {
	var out []string
	current := strings.Builder{}

	flush := func() {
		text := strings.TrimSpace(current.String())
		if len(text) >= p.config.MinChunkSize {
			out = append(out, text)
		}
		current.Reset()
	}

	for _, block := range splitBlocks(content) {
		if current.Len() > 0 && current.Len()+len(block)+2 > p.config.ChunkSize {
			flush()
		}

		if len(block) <= p.config.ChunkSize {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(block)
			continue
		}

		// Oversized block: tables break at row boundaries, prose goes
		// through the recursive splitter.
		flush()
		if isTableBlock(block) {
			out = append(out, p.splitTable(block)...)
			continue
		}
		parts, err := p.splitter.SplitText(block)
		if err != nil {
			return nil, err
		}
		out = append(out, parts...)
	}
	flush()

	return out, nil
}

// splitBlocks cuts the document into blank-line separated blocks while
// keeping each markdown table together as a single block.
func splitBlocks(content string) []string {
	lines := strings.Split(content, "\n")

	var blocks []string
	current := strings.Builder{}
	inTable := false

	flush := func() {
		if b := strings.TrimSpace(current.String()); b != "" {
			blocks = append(blocks, b)
		}
		current.Reset()
		inTable = false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		tableLine := isTableLine(trimmed)

		switch {
		case trimmed == "":
			flush()
		case tableLine && !inTable:
			// Table starts: close the prose block first.
			flush()
			inTable = true
			current.WriteString(line)
			current.WriteString("\n")
		case !tableLine && inTable:
			flush()
			current.WriteString(line)
			current.WriteString("\n")
		default:
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	flush()

	return blocks
}

// splitTable breaks an oversized markdown table at row boundaries. The
// header and separator rows are repeated on each continuation so every
// piece stays a readable table.
func (p *Processor) splitTable(table string) []string {
	rows := strings.Split(strings.TrimSpace(table), "\n")

	header := ""
	body := rows
	if len(rows) >= 2 && isSeparatorRow(rows[1]) {
		header = rows[0] + "\n" + rows[1] + "\n"
		body = rows[2:]
	}

	var out []string
	current := strings.Builder{}
	current.WriteString(header)

	for _, row := range body {
		if current.Len()+len(row)+1 > p.config.ChunkSize && current.Len() > len(header) {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
			current.WriteString(header)
		}
		current.WriteString(row)
		current.WriteString("\n")
	}
	if strings.TrimSpace(current.String()) != strings.TrimSpace(header) {
		out = append(out, strings.TrimSpace(current.String()))
	}

	return out
}

func isTableLine(line string) bool {
	return strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && strings.Count(line, "|") >= 2
}

func isTableBlock(block string) bool {
	return isTableLine(strings.TrimSpace(strings.SplitN(block, "\n", 2)[0]))
}

func isSeparatorRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !isTableLine(trimmed) {
		return false
	}
	inner := strings.Trim(trimmed, "|")
	for _, cell := range strings.Split(inner, "|") {
		cell = strings.TrimSpace(cell)
		if cell == "" || strings.Trim(cell, ":-") != "" {
			return false
		}
	}
	return true
}
