// Package ingest turns access-log lines into classification problems. It
// understands common and combined log format and carries the operator-rule
// ground truth alongside each subject.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// #region problem

// Problem is one unit of work for the engine: the subject to classify, the
// rule-derived ground truth and the source address for enforcement.
type Problem struct {
	Addr      string
	Subject   string
	Malicious bool
	Raw       string
}

// #endregion problem

// #region parse

// ParseLine parses one common or combined log format line. The subject is
// the percent-decoded "METHOD path?query"; the ground-truth hint comes from
// the threat signatures over the decoded target and user agent.
func ParseLine(line string) (Problem, error) {
	p := Problem{Raw: line}

	sp := strings.IndexByte(line, ' ')
	if sp <= 0 {
		return p, fmt.Errorf("malformed log line: %q", line)
	}
	p.Addr = line[:sp]

	start := strings.IndexByte(line, '"')
	if start < 0 {
		return p, fmt.Errorf("log line has no request section: %q", line)
	}
	end := strings.IndexByte(line[start+1:], '"')
	if end < 0 {
		return p, fmt.Errorf("unterminated request section: %q", line)
	}
	request := line[start+1 : start+1+end]

	parts := strings.SplitN(request, " ", 3)
	if len(parts) < 2 {
		return p, fmt.Errorf("malformed request %q", request)
	}
	method, target := parts[0], parts[1]

	decoded := target
	if u, err := url.QueryUnescape(target); err == nil {
		decoded = u
	}
	p.Subject = method + " " + decoded
	p.Malicious = Suspicious(decoded + " " + lastQuoted(line))
	return p, nil
}

// lastQuoted returns the content of the final quoted section, the user agent
// in combined format. Common format lines return the request itself, which
// the signature scan has already seen.
func lastQuoted(line string) string {
	end := strings.LastIndexByte(line, '"')
	if end <= 0 {
		return ""
	}
	start := strings.LastIndexByte(line[:end], '"')
	if start < 0 {
		return ""
	}
	return line[start+1 : end]
}

// #endregion parse

// #region stream

// Stream reads log lines from r and sends the parsed problems, in order, to
// out. It is the single producer of the engine's queue. Malformed lines are
// counted and skipped, blank lines ignored. out is closed when the source is
// exhausted or ctx is canceled; the skipped count is returned either way.
func Stream(ctx context.Context, r io.Reader, out chan<- Problem) (skipped int, err error) {
	defer close(out)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		p, perr := ParseLine(line)
		if perr != nil {
			skipped++
			continue
		}
		select {
		case out <- p:
		case <-ctx.Done():
			return skipped, ctx.Err()
		}
	}
	return skipped, sc.Err()
}

// #endregion stream
