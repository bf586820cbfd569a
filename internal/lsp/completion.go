package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
)

func (s *Server) handleCompletion(msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	s.sendResponse(msg.ID, s.complete(params), nil)
	return nil
}

// complete builds the completion list for a cursor position. The list is
// always marked incomplete: metadata missing now is fetched in the
// background and shows up when the client asks again.
func (s *Server) complete(params CompletionParams) *CompletionList {
	list := &CompletionList{IsIncomplete: true, Items: []CompletionItem{}}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return list
	}
	offset := doc.PositionToOffset(params.Position)
	suggestions := s.provider.CompleteSplit(doc.Content[:offset], doc.Content[offset:])

	replace := Range{Start: doc.OffsetToPosition(doc.WordStart(offset)), End: doc.OffsetToPosition(offset)}
	for i, sug := range suggestions {
		list.Items = append(list.Items, CompletionItem{
			Label:      sug.Label,
			Kind:       itemKind(sug.Kind),
			Detail:     itemDetail(sug),
			SortText:   fmt.Sprintf("%d%04d", sortGroup(sug.Kind), i),
			FilterText: sug.Label,
			TextEdit:   &TextEdit{Range: replace, NewText: sug.InsertText},
		})
	}
	return list
}

func itemKind(k completion.Kind) CompletionItemKind {
	switch k {
	case completion.KindKeyword:
		return CompletionItemKindKeyword
	case completion.KindCatalog:
		return CompletionItemKindFolder
	case completion.KindSchema:
		return CompletionItemKindModule
	case completion.KindView:
		return CompletionItemKindStruct
	case completion.KindColumn:
		return CompletionItemKindField
	default:
		return CompletionItemKindClass
	}
}

func itemDetail(sug completion.Suggestion) string {
	if sug.Detail == "" {
		return string(sug.Kind)
	}
	return string(sug.Kind) + " " + sug.Detail
}

// sortGroup orders columns first and keywords last.
func sortGroup(k completion.Kind) int {
	switch k {
	case completion.KindColumn:
		return 0
	case completion.KindTable, completion.KindView:
		return 1
	case completion.KindSchema, completion.KindCatalog:
		return 2
	default:
		return 3
	}
}

// --- Custom methods ---

func (s *Server) handleSetup(ctx context.Context, msg *JSONRPCMessage) error {
	var params SetupParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()
	if err := s.provider.Setup(ctx, params); err != nil {
		s.sendResponse(msg.ID, nil, setupError(err))
		return nil
	}
	s.sendResponse(msg.ID, SetupResult{Valid: s.provider.Valid()}, nil)
	return nil
}

func setupError(err error) *JSONRPCError {
	var unknown *metadata.UnknownDatabaseTypeError
	if errors.Is(err, metadata.ErrInvalidContext) || errors.As(err, &unknown) {
		return &JSONRPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	return &JSONRPCError{Code: codeInternalError, Message: err.Error()}
}

// handleInvalidate serves sqlcomplete/invalidate. It is a notification, but
// a client that sends an id gets told whether anything was cached.
func (s *Server) handleInvalidate(msg *JSONRPCMessage) error {
	var params InvalidateParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		if msg.ID != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		}
		return err
	}

	cleared := true
	switch {
	case params.Instances:
		s.store.RemoveInstances(params.DatabaseType)
	case len(params.Path) == 0:
		s.store.RemoveInstanceData(params.DatabaseType, params.InstanceID)
	default:
		cleared = s.store.ClearChildren(params.DatabaseType, params.InstanceID, params.Path)
	}

	if msg.ID != nil {
		s.sendResponse(msg.ID, map[string]bool{"cleared": cleared}, nil)
	}
	return nil
}
