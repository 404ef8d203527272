// Package resource binds an entity collection of the backend to list and mutate operations.
//
// Every successful mutation re-fetches the collection so callers always show backend state,
// and every outcome carries the notice to show the user.
package resource

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/cace/services/backend"
)

// Requester sends one JSON request to the backend. *backend.Client is one.
type Requester interface {
	Do(ctx context.Context, method, path string, in, out interface{}) error
}

// notice kinds
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func Success(msg string) Notice { return Notice{Kind: NoticeSuccess, Message: msg} }

func Failure(msg string) Notice { return Notice{Kind: NoticeError, Message: msg} }

// FailureFrom describes err for the user: the backend's own message when it sent one,
// otherwise what with the status.
func FailureFrom(err error, what string) Notice {
	if msg := backend.Message(err); msg != "" {
		return Failure(fmt.Sprintf("%s: %s", what, msg))
	}
	if code := backend.StatusCode(err); code != 0 {
		return Failure(fmt.Sprintf("%s (%d %s)", what, code, http.StatusText(code)))
	}
	return Failure(what)
}

func (n Notice) IsError() bool { return n.Kind == NoticeError }

// Outcome is the result of a mutation: the collection as re-fetched and the notice to show.
// Items is nil when the mutation or the re-fetch failed.
type Outcome[T any] struct {
	Items  []T
	Notice Notice
}

// Endpoints are the backend paths of a collection. Create and Item default to List.
// Items are addressed as Item + "/" + id.
type Endpoints struct {
	List   string
	Create string
	Item   string
}

// Collection is a list+mutate binding of one entity type.
type Collection[T any] struct {
	api   Requester
	name  string // singular, capitalised: "User"
	paths Endpoints
}

func NewCollection[T any](api Requester, name string, paths Endpoints) *Collection[T] {
	if paths.Create == "" {
		paths.Create = paths.List
	}
	if paths.Item == "" {
		paths.Item = paths.List
	}
	return &Collection[T]{api: api, name: name, paths: paths}
}

// List fetches the collection.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	items := make([]T, 0)
	if err := c.api.Do(ctx, http.MethodGet, c.paths.List, nil, &items); err != nil {
		return nil, errors.Wrapf(err, "listing %s", c.plural())
	}
	return items, nil
}

// Create posts body then re-fetches.
func (c *Collection[T]) Create(ctx context.Context, body interface{}) (Outcome[T], error) {
	err := c.api.Do(ctx, http.MethodPost, c.paths.Create, body, nil)
	return c.settle(ctx, err, "created", "create")
}

// Update replaces the item id with body (PUT) then re-fetches.
func (c *Collection[T]) Update(ctx context.Context, id int, body interface{}) (Outcome[T], error) {
	err := c.api.Do(ctx, http.MethodPut, c.itemPath(id), body, nil)
	return c.settle(ctx, err, "updated", "update")
}

// Patch partially updates the item id with body then re-fetches.
func (c *Collection[T]) Patch(ctx context.Context, id int, body interface{}) (Outcome[T], error) {
	err := c.api.Do(ctx, http.MethodPatch, c.itemPath(id), body, nil)
	return c.settle(ctx, err, "updated", "update")
}

// Delete removes the item id then re-fetches. Callers confirm with the user first.
func (c *Collection[T]) Delete(ctx context.Context, id int) (Outcome[T], error) {
	err := c.api.Do(ctx, http.MethodDelete, c.itemPath(id), nil, nil)
	return c.settle(ctx, err, "deleted", "delete")
}

func (c *Collection[T]) settle(ctx context.Context, err error, done, verb string) (Outcome[T], error) {
	if err != nil {
		err = errors.Wrapf(err, "%s %s", verb, strings.ToLower(c.name))
		return Outcome[T]{Notice: FailureFrom(err, fmt.Sprintf("Could not %s %s", verb, strings.ToLower(c.name)))}, err
	}

	items, err := c.List(ctx)
	if err != nil {
		// the mutation went through; only the refresh failed
		return Outcome[T]{Notice: FailureFrom(err, fmt.Sprintf("%s %s but the list could not be refreshed", c.name, done))}, err
	}
	return Outcome[T]{Items: items, Notice: Success(fmt.Sprintf("%s %s", c.name, done))}, nil
}

func (c *Collection[T]) itemPath(id int) string {
	return fmt.Sprintf("%s/%d", strings.TrimRight(c.paths.Item, "/"), id)
}

func (c *Collection[T]) plural() string {
	return strings.ToLower(c.name) + "s"
}
