package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	errs "github.com/matzehuels/graftwood/pkg/errors"
)

const xlinkNS = "http://www.w3.org/1999/xlink"

type element struct {
	name     string
	path     string
	attrs    []xml.Attr
	text     string
	line     int
	children []*element
}

func (e *element) attr(local string) string {
	for _, a := range e.attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// mountTarget returns the continuation of a mount element: the href of a
// <mount> element or any xlink:href. eager="true" or xlink:actuate="onLoad"
// make it eager.
func (e *element) mountTarget() (string, bool) {
	var target string
	eager := e.attr("eager") == "true"
	for _, a := range e.attrs {
		if a.Name.Space != xlinkNS && a.Name.Space != "xlink" {
			continue
		}
		switch a.Name.Local {
		case "href":
			target = strings.TrimSpace(a.Value)
		case "actuate":
			eager = eager || a.Value == "onLoad"
		}
	}
	if target == "" && e.name == "mount" {
		target = strings.TrimSpace(e.attr("href"))
	}
	return target, eager
}

type document struct {
	title string
	root  *element
	paths map[string]*element
}

// parse reads an XML document into an element tree. Element paths are
// XPath-like ("/a/b[2]"); the index is only written for the second and
// later siblings of the same name.
func parse(title string, data []byte) (*document, error) {
	doc := &document{title: title, paths: make(map[string]*element)}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var stack []*element
	var counts []map[string]int

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "parse xml")
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			el := &element{name: tok.Name.Local, attrs: tok.Attr, line: line}
			parentPath := ""
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parentPath = parent.path
				parent.children = append(parent.children, el)
			} else if doc.root != nil {
				return nil, errs.New(errs.ErrCodeInvalidSource, "line %d: more than one root element", line)
			} else {
				doc.root = el
				counts = append(counts[:0], map[string]int{})
			}
			siblings := counts[len(counts)-1]
			siblings[el.name]++
			el.path = parentPath + "/" + el.name
			if n := siblings[el.name]; n > 1 {
				el.path += "[" + strconv.Itoa(n) + "]"
			}
			doc.paths[el.path] = el
			stack = append(stack, el)
			counts = append(counts, map[string]int{})
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			counts = counts[:len(counts)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(tok)
			}
		}
	}
	if doc.root == nil {
		return nil, errs.New(errs.ErrCodeInvalidSource, "document has no root element")
	}
	return doc, nil
}

// lookup finds an element by path. "[1]" suffixes are accepted.
func (d *document) lookup(path string) *element {
	path = "/" + strings.Trim(path, "/")
	if el, ok := d.paths[path]; ok {
		return el
	}
	return d.paths[strings.ReplaceAll(path, "[1]", "")]
}
