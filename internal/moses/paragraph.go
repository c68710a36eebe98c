package moses

import (
	"bufio"
	"io"
	"strings"
)

// ParagraphScanner reads paragraphs from line-oriented text, one per Scan.
//
// In wrapped mode consecutive non-blank lines form one paragraph and blank
// lines separate paragraphs. Otherwise every line is its own paragraph and a
// blank line yields an empty paragraph, so blank lines survive a round trip
// through ParagraphWriter. Lines are trimmed in both modes and may be of
// any length.
type ParagraphScanner struct {
	sc      *LineScanner
	wrapped bool
	para    []string
	done    bool
}

func NewParagraphScanner(r io.Reader, wrapped bool) *ParagraphScanner {
	return &ParagraphScanner{sc: NewLineScanner(r), wrapped: wrapped}
}

// Scan advances to the next paragraph. It returns false at end of input or
// on a read error.
func (p *ParagraphScanner) Scan() bool {
	if p.done {
		return false
	}
	if !p.wrapped {
		if !p.sc.Scan() {
			p.done = true
			return false
		}
		p.para = nil
		if line := strings.TrimSpace(p.sc.Text()); line != "" {
			p.para = []string{line}
		}
		return true
	}

	var para []string
	for p.sc.Scan() {
		line := strings.TrimSpace(p.sc.Text())
		if line != "" {
			para = append(para, line)
			continue
		}
		if len(para) > 0 {
			p.para = para
			return true
		}
	}
	p.done = true
	if len(para) > 0 && p.sc.Err() == nil {
		p.para = para
		return true
	}
	return false
}

// Paragraph returns the paragraph produced by the last Scan. The slice is not
// reused by later calls.
func (p *ParagraphScanner) Paragraph() []string {
	return p.para
}

// Err returns the first read error, if any.
func (p *ParagraphScanner) Err() error {
	return p.sc.Err()
}

// ParagraphWriter writes paragraphs one sentence per line. A blank line
// follows every paragraph when blankSep is set, and always follows an empty
// paragraph.
type ParagraphWriter struct {
	w        *bufio.Writer
	blankSep bool
}

func NewParagraphWriter(w io.Writer, blankSep bool) *ParagraphWriter {
	return &ParagraphWriter{w: bufio.NewWriter(w), blankSep: blankSep}
}

func (p *ParagraphWriter) Write(paragraph []string) error {
	for _, sentence := range paragraph {
		if _, err := p.w.WriteString(sentence); err != nil {
			return err
		}
		if err := p.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if p.blankSep || len(paragraph) == 0 {
		return p.w.WriteByte('\n')
	}
	return nil
}

// Flush writes any buffered output.
func (p *ParagraphWriter) Flush() error {
	return p.w.Flush()
}

// ReadParagraphs reads every paragraph from r.
func ReadParagraphs(r io.Reader, wrapped bool) ([][]string, error) {
	var out [][]string
	sc := NewParagraphScanner(r, wrapped)
	for sc.Scan() {
		out = append(out, sc.Paragraph())
	}
	return out, sc.Err()
}

// WriteParagraphs writes paragraphs to w and flushes.
func WriteParagraphs(w io.Writer, paragraphs [][]string, blankSep bool) error {
	pw := NewParagraphWriter(w, blankSep)
	for _, para := range paragraphs {
		if err := pw.Write(para); err != nil {
			return err
		}
	}
	return pw.Flush()
}
