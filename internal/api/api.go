package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Default pagination, matching the panel.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Caller performs one enveloped request. *transport.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method, path string, query url.Values, body, result any) (string, error)
}

// API groups the resource services.
type API struct {
	Users        *UserService
	Clients      *ClientService
	Inbounds     *InboundService
	Outbounds    *OutboundService
	Stats        *StatsService
	Certificates *CertificateService
	System       *SystemService
	Audit        *AuditService
}

// New binds every service to c.
func New(c Caller) *API {
	return &API{
		Users:        &UserService{c: c},
		Clients:      &ClientService{c: c},
		Inbounds:     &InboundService{c: c},
		Outbounds:    &OutboundService{c: c},
		Stats:        &StatsService{c: c},
		Certificates: &CertificateService{c: c},
		System:       &SystemService{c: c},
		Audit:        &AuditService{c: c},
	}
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Pages returns the number of pages needed for Total rows.
func (p *Page[T]) Pages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// HasNext reports whether a later page exists.
func (p *Page[T]) HasNext() bool {
	return p.Page < p.Pages()
}

// ListOptions selects a page. Zero values fall back to the defaults.
type ListOptions struct {
	Page     int
	PageSize int
}

func (o ListOptions) normalized() ListOptions {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

// Values encodes the options as a query.
func (o ListOptions) Values() url.Values {
	o = o.normalized()
	q := url.Values{}
	q.Set("page", strconv.Itoa(o.Page))
	q.Set("page_size", strconv.Itoa(o.PageSize))
	return q
}

func list[T any](ctx context.Context, c Caller, path string, q url.Values) (*Page[T], error) {
	var page Page[T]
	if _, err := c.Call(ctx, http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	if page.List == nil {
		page.List = []T{}
	}
	return &page, nil
}

func get[T any](ctx context.Context, c Caller, path string, q url.Values) (T, error) {
	var out T
	_, err := c.Call(ctx, http.MethodGet, path, q, nil, &out)
	return out, err
}

// send issues a mutating request and decodes the returned object, if any.
func send[T any](ctx context.Context, c Caller, method, path string, body any) (*T, error) {
	var out T
	if _, err := c.Call(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// exec issues a request whose data is ignored and returns the panel message.
func exec(ctx context.Context, c Caller, method, path string, body any) (string, error) {
	return c.Call(ctx, method, path, nil, body, nil)
}

func item(collection string, id uint, sub ...string) string {
	p := fmt.Sprintf("%s/%d", collection, id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}
