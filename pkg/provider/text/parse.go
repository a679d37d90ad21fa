package text

import (
	"bufio"
	"bytes"
	"strings"

	errs "github.com/matzehuels/graftwood/pkg/errors"
)

const tabWidth = 4

type item struct {
	label    string
	content  string
	mount    string
	eager    bool
	line     int
	children []*item
}

type outline struct {
	title string
	items []*item
}

// find follows a child-index path such as "3/1".
func (o *outline) find(path []int) *item {
	items := o.items
	var it *item
	for _, i := range path {
		if i < 0 || i >= len(items) {
			return nil
		}
		it = items[i]
		items = it.children
	}
	return it
}

type frame struct {
	indent int
	it     *item
}

// parse reads an indented outline. Lines starting with "#" are comments, a
// line starting with "> " adds content to the previous item, and "@mount"
// or "@mount!" turns the previous item into a lazy or eager mount point.
func parse(title string, data []byte) (*outline, error) {
	o := &outline{title: title}
	var stack []frame
	var last *item

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for lineNo := 1; sc.Scan(); lineNo++ {
		raw := strings.TrimRight(sc.Text(), " \t\r")
		text := strings.TrimLeft(raw, " \t")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(text, "@mount"):
			if err := applyMount(last, text, lineNo); err != nil {
				return nil, err
			}
			continue
		case strings.HasPrefix(text, "> ") || text == ">":
			if last == nil {
				return nil, errs.New(errs.ErrCodeInvalidSource, "line %d: content before the first item", lineNo)
			}
			line := strings.TrimPrefix(strings.TrimPrefix(text, ">"), " ")
			if last.content != "" {
				last.content += "\n"
			}
			last.content += line
			continue
		}

		indent := indentWidth(raw)
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		it := &item{label: text, line: lineNo}
		if len(stack) == 0 {
			o.items = append(o.items, it)
		} else {
			parent := stack[len(stack)-1].it
			if parent.mount != "" {
				return nil, errs.New(errs.ErrCodeInvalidSource,
					"line %d: %q is a mount point (line %d) and cannot have children", lineNo, parent.label, parent.line)
			}
			parent.children = append(parent.children, it)
		}
		stack = append(stack, frame{indent: indent, it: it})
		last = it
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "read outline")
	}
	return o, nil
}

func applyMount(last *item, text string, lineNo int) error {
	directive, target, _ := strings.Cut(text, " ")
	eager := false
	switch directive {
	case "@mount":
	case "@mount!":
		eager = true
	default:
		return errs.New(errs.ErrCodeInvalidSource, "line %d: unknown directive %q", lineNo, directive)
	}
	target = strings.TrimSpace(target)
	switch {
	case last == nil:
		return errs.New(errs.ErrCodeInvalidSource, "line %d: %s before the first item", lineNo, directive)
	case target == "":
		return errs.New(errs.ErrCodeInvalidSource, "line %d: %s needs a continuation", lineNo, directive)
	case last.mount != "":
		return errs.New(errs.ErrCodeInvalidSource, "line %d: %q already mounts %s", lineNo, last.label, last.mount)
	}
	last.mount, last.eager = target, eager
	return nil
}

func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += tabWidth
		default:
			return w
		}
	}
	return w
}
