package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

type stubTransport struct {
	mu     sync.Mutex
	tables map[string][]core.NameKind
	calls  int
}

func (f *stubTransport) ListDatabaseConfigs(context.Context) ([]core.DatabaseConfig, error) {
	return []core.DatabaseConfig{{Type: "MYSQL", UseCatalog: true}}, nil
}

func (f *stubTransport) ListInstances(context.Context, string) ([]core.Instance, error) {
	return nil, nil
}

func (f *stubTransport) ListCatalogNames(context.Context, string, int64) ([]string, error) {
	return []string{"shop"}, nil
}

func (f *stubTransport) ListSchemaNames(context.Context, string, int64, string) ([]string, error) {
	return nil, nil
}

func (f *stubTransport) ListTableAndViewNames(_ context.Context, _ string, _ int64, catalog, _ string) ([]core.NameKind, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tables[catalog], nil
}

func (f *stubTransport) ListTableColumns(context.Context, string, int64, core.TableCoordinator) ([]core.Column, error) {
	return nil, nil
}

func (f *stubTransport) ListTablesColumns(_ context.Context, _ string, _ int64, tables []core.TableCoordinator) ([]core.TableColumns, error) {
	var out []core.TableColumns
	for _, t := range tables {
		if t.Table == "users" {
			out = append(out, core.TableColumns{Catalog: t.Catalog, Table: t.Table, Columns: []core.Column{
				{Name: "id", TypeName: "int"}, {Name: "name", TypeName: "varchar"},
			}})
		}
	}
	return out, nil
}

func (f *stubTransport) tableCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testClient drives a Server over pipes.
type testClient struct {
	t      *testing.T
	server *Server
	in     *io.PipeWriter
	out    *bufio.Reader
	nextID int
	done   chan error

	notifications []JSONRPCMessage
}

func newTestClient(t *testing.T, transport *stubTransport) *testClient {
	t.Helper()
	// the server outlives the test body, so it must not log through t
	store := metadata.NewStore(transport, nil)
	provider := completion.NewProvider(store, nil)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := NewServer(inR, outW, store, provider, nil)

	c := &testClient{t: t, server: s, in: inW, out: bufio.NewReader(outR), done: make(chan error, 1)}
	go func() {
		c.done <- s.Run(context.Background())
		_ = outW.Close()
	}()
	t.Cleanup(func() { _ = inW.Close() })
	return c
}

func (c *testClient) send(msg JSONRPCMessage) {
	c.t.Helper()
	msg.JSONRPC = "2.0"
	body, err := json.Marshal(msg)
	require.NoError(c.t, err)
	_, err = fmt.Fprintf(c.in, "Content-Length: %d\r\n\r\n%s", len(body), body)
	require.NoError(c.t, err)
}

func (c *testClient) read() JSONRPCMessage {
	c.t.Helper()
	length := 0
	for {
		line, err := c.out.ReadString('\n')
		require.NoError(c.t, err)
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			length, err = strconv.Atoi(v)
			require.NoError(c.t, err)
		}
	}
	body := make([]byte, length)
	_, err := io.ReadFull(c.out, body)
	require.NoError(c.t, err)
	var msg JSONRPCMessage
	require.NoError(c.t, json.Unmarshal(body, &msg))
	return msg
}

// notification returns the next notification, including one that arrived
// while waiting for a response.
func (c *testClient) notification() JSONRPCMessage {
	c.t.Helper()
	if len(c.notifications) > 0 {
		msg := c.notifications[0]
		c.notifications = c.notifications[1:]
		return msg
	}
	return c.read()
}

func (c *testClient) params(v any) json.RawMessage {
	c.t.Helper()
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	require.NoError(c.t, err)
	return b
}

// request sends a request and returns its response, collecting any
// notifications that arrive first.
func (c *testClient) request(method string, params any) JSONRPCMessage {
	c.t.Helper()
	c.nextID++
	id := json.RawMessage(strconv.Itoa(c.nextID))
	c.send(JSONRPCMessage{ID: &id, Method: method, Params: c.params(params)})
	for {
		msg := c.read()
		if msg.ID == nil {
			c.notifications = append(c.notifications, msg)
			continue
		}
		require.Equal(c.t, string(id), string(*msg.ID))
		return msg
	}
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	c.send(JSONRPCMessage{Method: method, Params: c.params(params)})
}

func (c *testClient) complete(uri string, line, char uint32) CompletionList {
	c.t.Helper()
	resp := c.request("textDocument/completion", CompletionParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Position:     Position{Line: line, Character: char},
		},
	})
	require.Nil(c.t, resp.Error)
	var list CompletionList
	require.NoError(c.t, json.Unmarshal(resp.Result, &list))
	return list
}

func (c *testClient) exit() error {
	c.t.Helper()
	c.notify("exit", nil)
	select {
	case err := <-c.done:
		return err
	case <-time.After(5 * time.Second):
		c.t.Fatal("server did not exit")
		return nil
	}
}

func newStub() *stubTransport {
	return &stubTransport{tables: map[string][]core.NameKind{
		"shop": {{Name: "users", Kind: core.KindTable}, {Name: "orders", Kind: core.KindTable}},
	}}
}

func labelsOf(list CompletionList) []string {
	var out []string
	for _, it := range list.Items {
		out = append(out, it.Label)
	}
	return out
}

func TestServer_InitializeAndComplete(t *testing.T) {
	stub := newStub()
	c := newTestClient(t, stub)

	resp := c.request("initialize", map[string]any{
		"processId":             1,
		"initializationOptions": completion.Context{DatabaseType: "MYSQL", InstanceID: 7, Catalog: "shop"},
	})
	require.Nil(t, resp.Error)
	var init InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &init))
	require.NotNil(t, init.Capabilities.CompletionProvider)
	assert.Contains(t, init.Capabilities.CompletionProvider.TriggerCharacters, ".")
	assert.Contains(t, init.Capabilities.CompletionProvider.TriggerCharacters, "(")
	assert.Equal(t, "sqlcomplete", init.ServerInfo.Name)

	c.notify("initialized", struct{}{})
	c.server.Wait()
	assert.Equal(t, 1, stub.tableCalls())

	uri := "file:///q.sql"
	c.notify("textDocument/didOpen", DidOpenTextDocumentParams{TextDocument: TextDocumentItem{
		URI: uri, LanguageID: "sql", Version: 1, Text: "SELECT *\nFROM us",
	}})

	list := c.complete(uri, 1, 7)
	assert.True(t, list.IsIncomplete)
	require.Equal(t, []string{"users"}, labelsOf(list))
	item := list.Items[0]
	assert.Equal(t, CompletionItemKindClass, item.Kind)
	require.NotNil(t, item.TextEdit)
	assert.Equal(t, Range{Start: Position{Line: 1, Character: 5}, End: Position{Line: 1, Character: 7}}, item.TextEdit.Range)
	assert.Equal(t, "users", item.TextEdit.NewText)

	// columns arrive after the background fetch
	c.notify("textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier: TextDocumentIdentifier{URI: uri}, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "SELECT u. FROM users u"}},
	})
	c.complete(uri, 0, 9)
	c.server.Wait()
	list = c.complete(uri, 0, 9)
	assert.Equal(t, []string{"id", "name"}, labelsOf(list))
	assert.Equal(t, CompletionItemKindField, list.Items[0].Kind)
	assert.Equal(t, "column int", list.Items[0].Detail)
	assert.Equal(t, Position{Line: 0, Character: 9}, list.Items[0].TextEdit.Range.Start)

	assert.Nil(t, c.request("shutdown", nil).Error)
	assert.NoError(t, c.exit())
}

func TestServer_CompletionWithoutSetup(t *testing.T) {
	c := newTestClient(t, newStub())
	c.request("initialize", map[string]any{"processId": 1})
	c.notify("textDocument/didOpen", DidOpenTextDocumentParams{TextDocument: TextDocumentItem{URI: "file:///a.sql", Text: "SELECT * FROM "}})

	list := c.complete("file:///a.sql", 0, 14)
	assert.Empty(t, list.Items)
	assert.Empty(t, c.complete("file:///unknown.sql", 0, 0).Items)
}

func TestServer_SetupRequest(t *testing.T) {
	stub := newStub()
	c := newTestClient(t, stub)
	c.request("initialize", map[string]any{"processId": 1})

	resp := c.request("sqlcomplete/setup", completion.Context{DatabaseType: "MYSQL", InstanceID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = c.request("sqlcomplete/setup", completion.Context{DatabaseType: "NOPE", InstanceID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = c.request("sqlcomplete/setup", completion.Context{DatabaseType: "MYSQL", InstanceID: 1, Catalog: "shop"})
	require.Nil(t, resp.Error)
	var result SetupResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	c.server.Wait()
	assert.Equal(t, 1, stub.tableCalls())
	c.notify("textDocument/didOpen", DidOpenTextDocumentParams{TextDocument: TextDocumentItem{URI: "file:///s.sql", Text: "SELECT * FROM "}})
	assert.Subset(t, labelsOf(c.complete("file:///s.sql", 0, 14)), []string{"users", "orders"})
}

func TestServer_SetupFailureIsReported(t *testing.T) {
	c := newTestClient(t, newStub())
	c.request("initialize", map[string]any{
		"processId":             1,
		"initializationOptions": completion.Context{DatabaseType: "MYSQL", InstanceID: 1},
	})

	msg := c.notification()
	assert.Equal(t, "window/showMessage", msg.Method)
	var params ShowMessageParams
	require.NoError(t, json.Unmarshal(msg.Params, &params))
	assert.Equal(t, MessageTypeWarning, params.Type)
	assert.Contains(t, params.Message, "requires a catalog")
}

func TestServer_Invalidate(t *testing.T) {
	stub := newStub()
	c := newTestClient(t, stub)
	c.request("initialize", map[string]any{"processId": 1})
	c.request("sqlcomplete/setup", completion.Context{DatabaseType: "MYSQL", InstanceID: 1, Catalog: "shop"})
	c.server.Wait()
	require.Equal(t, 1, stub.tableCalls())

	resp := c.request("sqlcomplete/invalidate", InvalidateParams{
		DatabaseType: "MYSQL", InstanceID: 1,
		Path: []core.PathElement{{Kind: core.KindCatalog, Name: "shop"}},
	})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"cleared":true}`, string(resp.Result))

	resp = c.request("sqlcomplete/invalidate", InvalidateParams{
		DatabaseType: "MYSQL", InstanceID: 1,
		Path: []core.PathElement{{Kind: core.KindCatalog, Name: "nope"}},
	})
	assert.JSONEq(t, `{"cleared":false}`, string(resp.Result))

	c.notify("textDocument/didOpen", DidOpenTextDocumentParams{TextDocument: TextDocumentItem{URI: "file:///a.sql", Text: "SELECT * FROM "}})
	c.complete("file:///a.sql", 0, 14)
	c.server.Wait()
	assert.Equal(t, 2, stub.tableCalls())
	assert.Contains(t, labelsOf(c.complete("file:///a.sql", 0, 14)), "orders")

	// whole instance, as a notification
	c.notify("sqlcomplete/invalidate", InvalidateParams{DatabaseType: "MYSQL", InstanceID: 1})
	c.complete("file:///a.sql", 0, 14)
	c.server.Wait()
	assert.Equal(t, 3, stub.tableCalls())
}

func TestServer_Lifecycle(t *testing.T) {
	t.Run("unknown method", func(t *testing.T) {
		c := newTestClient(t, newStub())
		resp := c.request("textDocument/hover", map[string]any{})
		require.NotNil(t, resp.Error)
		assert.Equal(t, codeMethodNotFound, resp.Error.Code)
	})

	t.Run("requests after shutdown", func(t *testing.T) {
		c := newTestClient(t, newStub())
		c.request("shutdown", nil)
		resp := c.request("textDocument/completion", map[string]any{})
		require.NotNil(t, resp.Error)
		assert.Equal(t, codeInvalidRequest, resp.Error.Code)
		assert.NoError(t, c.exit())
	})

	t.Run("exit without shutdown", func(t *testing.T) {
		c := newTestClient(t, newStub())
		assert.ErrorIs(t, c.exit(), ErrExitWithoutShutdown)
	})

	t.Run("end of input", func(t *testing.T) {
		c := newTestClient(t, newStub())
		require.NoError(t, c.in.Close())
		select {
		case err := <-c.done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})
}
