package resource

import (
	"strings"
	"testing"
)

const testScriptXML = `<?xml version="1.0" encoding="UTF-8"?>
<ns2:testscript xmlns:ns2="http://jazz.net/xmlns/alm/qm/v0.1/" xmlns:ns1="http://purl.org/dc/elements/1.1/" xmlns:ns3="http://jazz.net/xmlns/alm/v0.1/"><ns1:identifier>https://qm/resources/P/testscript/7</ns1:identifier><ns1:title>Login</ns1:title><ns3:updated>2024-01-02T03:04:05Z</ns3:updated><ns2:webId>7</ns2:webId></ns2:testscript>`

func TestChildLookup(t *testing.T) {
	doc, err := Parse([]byte(testScriptXML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	root := doc.Root()

	if got := ChildText(root, NamespaceDC, "title"); got != "Login" {
		t.Errorf("Expected title 'Login', got %q", got)
	}
	if got := ChildText(root, NamespaceALM, "updated"); got != "2024-01-02T03:04:05Z" {
		t.Errorf("Unexpected updated: %q", got)
	}
	if got := ChildText(root, NamespaceALMQM, "webId"); got != "7" {
		t.Errorf("Unexpected webId: %q", got)
	}
	if Child(root, NamespaceALM, "title") != nil {
		t.Error("Child should match namespace, not only the local name")
	}
	if got := len(Children(root, NamespaceDC, "identifier")); got != 1 {
		t.Errorf("Expected 1 identifier, got %d", got)
	}
}

func TestSetChildText(t *testing.T) {
	doc, err := Parse([]byte(testScriptXML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	root := doc.Root()

	SetChildText(root, NamespaceALMQM, "webId", "8")
	added := SetChildText(root, NamespaceALMQM, "adapterid", "adapter-1")

	if added.Space != "ns2" {
		t.Errorf("New child should reuse the bound prefix, got %q", added.Space)
	}

	out, err := Render(doc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(out, "<ns2:webId>8</ns2:webId>") {
		t.Errorf("webId not replaced:\n%s", out)
	}
	if !strings.Contains(out, "<ns2:adapterid>adapter-1</ns2:adapterid>") {
		t.Errorf("adapterid not added:\n%s", out)
	}
}

func TestIndent(t *testing.T) {
	out, err := Indent([]byte(testScriptXML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(out, "\n  <ns1:title>Login</ns1:title>") {
		t.Errorf("Expected indented children:\n%s", out)
	}

	if _, err := Indent([]byte("<broken")); err == nil {
		t.Error("Expected error for malformed XML")
	}
}
