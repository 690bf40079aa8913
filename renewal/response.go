package renewal

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode"
)

const (
	elementB64   = "b64"
	elementError = "Error"
)

var errNoB64 = errors.New("no b64 element in response")

// xmlNode is a generic element tree.
type xmlNode struct {
	XMLName  xml.Name
	Content  string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// find returns the first element named local in document order.
func (n *xmlNode) find(
	local string,
) *xmlNode {
	if n.XMLName.Local == local {
		return n
	}
	for i := range n.Children {
		if found := n.Children[i].find(local); found != nil {
			return found
		}
	}
	return nil
}

func parseResponse(
	body []byte,
) (
	*xmlNode,
	error,
) {
	var root xmlNode
	dec := xml.NewDecoder(bytes.NewReader(body))
	// The CA declares encodings like ISO-8859-1 that the decoder does not
	// know; the payload we care about is ASCII.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// ExtractB64 returns the whitespace-stripped text of the first b64 element
// of the CA's XML response.
func ExtractB64(
	body []byte,
) (
	string,
	error,
) {
	root, err := parseResponse(body)
	if err != nil {
		return "", &ProtocolError{Reason: "malformed XML: " + err.Error(), Raw: body}
	}

	node := root.find(elementB64)
	if node == nil {
		reason := errNoB64.Error()
		if e := root.find(elementError); e != nil && strings.TrimSpace(e.Content) != "" {
			reason += ": CA error: " + strings.TrimSpace(e.Content)
		}
		return "", &ProtocolError{Reason: reason, Raw: body}
	}

	payload := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, node.Content)
	if payload == "" {
		return "", &ProtocolError{Reason: "empty b64 element", Raw: body}
	}

	return payload, nil
}

// decodePayload turns the b64 text into certificate DER. The decoded bytes
// may themselves be a PEM document.
func decodePayload(
	payload string,
) (
	[]byte,
	error,
) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, errors.New("undecodable PEM payload")
		}
		return block.Bytes, nil
	}

	return data, nil
}
