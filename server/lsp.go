package server

import (
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/wsi/pkg/bytecode"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "wsi-lsp"

var log = commonlog.GetLogger("wsi.lsp")

// LspServer provides editor features for whitespace sources: compile
// diagnostics, instruction hover, label symbols, and label navigation.
type LspServer struct {
	analyzer *Analyzer

	mu   sync.Mutex
	docs map[string]*Document // URI → latest analysis

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server compiling documents with the analyzer.
func NewLSP(a *Analyzer) *LspServer {
	s := &LspServer{
		analyzer: a,
		docs:     make(map[string]*Document),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("wsi LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update analyzes text, stores the result and publishes its diagnostics.
func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	doc := s.analyzer.Analyze(text)
	if doc.Err != nil {
		log.Debugf("%s: %s", uri, doc.Err)
	}

	s.mu.Lock()
	s.docs[string(uri)] = doc
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics(doc),
	})
}

func (s *LspServer) document(uri protocol.DocumentUri) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	return doc, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(doc.Text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return completions(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.Program == nil {
		return nil, nil
	}

	i := instructionAt(doc, params.Position)
	if i < 0 {
		return nil, nil
	}

	r := instructionRange(doc, i)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: hoverMarkdown(doc.Program, i),
		},
		Range: &r,
	}, nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.Program == nil {
		return nil, nil
	}

	label, ok := labelAt(doc.Program, instructionAt(doc, params.Position))
	if !ok {
		return nil, nil
	}
	target, ok := doc.Program.ResolveLabel(label)
	if !ok {
		return nil, nil
	}

	return protocol.Location{
		URI:   params.TextDocument.URI,
		Range: instructionRange(doc, target),
	}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.Program == nil {
		return nil, nil
	}

	label, ok := labelAt(doc.Program, instructionAt(doc, params.Position))
	if !ok {
		return nil, nil
	}

	var locations []protocol.Location
	for _, i := range labelReferences(doc.Program, label) {
		if !params.Context.IncludeDeclaration && doc.Program.At(i).Op == bytecode.OpLabel {
			continue
		}
		locations = append(locations, protocol.Location{
			URI:   params.TextDocument.URI,
			Range: instructionRange(doc, i),
		})
	}
	return locations, nil
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.Program == nil {
		return nil, nil
	}
	return labelSymbols(doc), nil
}

// --- Text extraction helpers ---

// extractPrefix returns the mnemonic fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	end, ok := byteOffset(text, pos)
	if !ok {
		return ""
	}

	start := end
	for start > 0 && isASCIILetter(text[start-1]) {
		start--
	}
	return text[start:end]
}

func isASCIILetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func boolPtr(b bool) *bool {
	return &b
}
