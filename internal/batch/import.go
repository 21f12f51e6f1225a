// Package batch drives newline-delimited JSON imports through the
// registration engine, writing one outcome line per input line. A bad line
// never aborts the batch.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/pidkeeper/internal/pid"
	"github.com/emrgen/pidkeeper/internal/service"
)

// maxLineSize bounds a single JSONL line; registration rows are small, so
// anything beyond this is garbage input.
const maxLineSize = 1 << 20

// FlexString tolerates the loose typing of exported registries, where
// issue_order and pub_year arrive as strings, numbers or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Row is one JSONL input record.
type Row struct {
	V2         string     `json:"v2"`
	V3         string     `json:"v3"`
	AOP        string     `json:"aop"`
	Filename   string     `json:"filename"`
	DOI        string     `json:"doi"`
	Status     string     `json:"status"`
	PubYear    FlexString `json:"pub_year"`
	IssueOrder FlexString `json:"issue_order"`
	Volume     string     `json:"volume"`
	Number     string     `json:"number"`
	Suppl      string     `json:"suppl"`
	Elocation  string     `json:"elocation"`
	Fpage      string     `json:"fpage"`
	Lpage      string     `json:"lpage"`

	FirstAuthorSurname string `json:"first_author_surname"`
	LastAuthorSurname  string `json:"last_author_surname"`
	ArticleTitle       string `json:"article_title"`
	OtherPids          string `json:"other_pids"`
}

func (r Row) Raw() pid.Raw {
	return pid.Raw{
		V2:         r.V2,
		V3:         r.V3,
		AOP:        r.AOP,
		Filename:   r.Filename,
		DOI:        r.DOI,
		Status:     r.Status,
		PubYear:    string(r.PubYear),
		IssueOrder: string(r.IssueOrder),
		Volume:     r.Volume,
		Number:     r.Number,
		Suppl:      r.Suppl,
		Elocation:  r.Elocation,
		Fpage:      r.Fpage,
		Lpage:      r.Lpage,

		FirstAuthorSurname: r.FirstAuthorSurname,
		LastAuthorSurname:  r.LastAuthorSurname,
		ArticleTitle:       r.ArticleTitle,
		OtherPids:          r.OtherPids,
	}
}

// parseError is the outcome line for a line that was not valid JSON.
type parseError struct {
	ExceptionType string `json:"exception_type"`
	ExceptionMsg  string `json:"exception_msg"`
	Row           string `json:"row"`
}

type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

func NewImporter(svc *service.RegistrationService) *Importer {
	return &Importer{svc: svc}
}

type Importer struct {
	svc *service.RegistrationService
}

// Run reads inputPath line by line, registers each parsed row, and appends
// one JSON outcome per line to resultPath. The bookkeeping-only `created`/
// `updated` timestamps are stripped from logged records.
func (i *Importer) Run(ctx context.Context, inputPath, resultPath string) (*Summary, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(resultPath)
	if err != nil {
		return nil, fmt.Errorf("creating result log: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	summary := &Summary{}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		summary.Total++

		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			summary.Failed++
			writeLine(w, parseError{
				ExceptionType: "json_decode_error",
				ExceptionMsg:  err.Error(),
				Row:           line,
			})
			continue
		}

		res := i.svc.Register(ctx, row.Raw())
		if res.Registered != nil || res.Created != nil {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		writeLine(w, stripBookkeeping(res))
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading input: %w", err)
	}

	logrus.Infof("import finished: %d rows, %d succeeded, %d failed",
		summary.Total, summary.Succeeded, summary.Failed)
	return summary, nil
}

func writeLine(w *bufio.Writer, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.Errorf("marshalling result line: %v", err)
		return
	}
	w.Write(data)
	w.WriteByte('\n')
}

// stripBookkeeping drops created/updated timestamps from the record
// sub-objects before logging; they are storage bookkeeping, not outcome.
func stripBookkeeping(res service.Result) map[string]interface{} {
	data, err := json.Marshal(res)
	if err != nil {
		return map[string]interface{}{"exception_msg": err.Error()}
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{"exception_msg": err.Error()}
	}

	for _, key := range []string{"registered", "created", "saved"} {
		if sub, ok := m[key].(map[string]interface{}); ok {
			delete(sub, "created")
			delete(sub, "updated")
		}
	}
	return m
}
