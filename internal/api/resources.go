package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// UserService manages panel accounts. Admin only.
type UserService struct{ c Caller }

func (s *UserService) List(ctx context.Context, opts ListOptions) (*Page[User], error) {
	return list[User](ctx, s.c, "users", opts.Values())
}

func (s *UserService) Get(ctx context.Context, id uint) (User, error) {
	return get[User](ctx, s.c, item("users", id), nil)
}

func (s *UserService) Create(ctx context.Context, in CreateUser) (*User, error) {
	return send[User](ctx, s.c, http.MethodPost, "users", in)
}

func (s *UserService) Update(ctx context.Context, id uint, in UpdateUser) (*User, error) {
	return send[User](ctx, s.c, http.MethodPut, item("users", id), in)
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	_, err := exec(ctx, s.c, http.MethodDelete, item("users", id), nil)
	return err
}

// ClientService manages proxy end users.
type ClientService struct{ c Caller }

func (s *ClientService) List(ctx context.Context, opts ListOptions) (*Page[Client], error) {
	return list[Client](ctx, s.c, "clients", opts.Values())
}

func (s *ClientService) Get(ctx context.Context, id uint) (Client, error) {
	return get[Client](ctx, s.c, item("clients", id), nil)
}

func (s *ClientService) Create(ctx context.Context, in CreateClient) (*Client, error) {
	return send[Client](ctx, s.c, http.MethodPost, "clients", in)
}

func (s *ClientService) Update(ctx context.Context, id uint, in UpdateClient) (*Client, error) {
	return send[Client](ctx, s.c, http.MethodPut, item("clients", id), in)
}

func (s *ClientService) Delete(ctx context.Context, id uint) error {
	_, err := exec(ctx, s.c, http.MethodDelete, item("clients", id), nil)
	return err
}

// ResetTraffic zeroes the client's used traffic.
func (s *ClientService) ResetTraffic(ctx context.Context, id uint) error {
	_, err := exec(ctx, s.c, http.MethodPost, item("clients", id, "reset-traffic"), nil)
	return err
}

// Links returns share links for every enabled inbound the client belongs
// to. server overrides the host written into the links.
func (s *ClientService) Links(ctx context.Context, id uint, server string) ([]Link, error) {
	var q url.Values
	if server != "" {
		q = url.Values{"server": {server}}
	}
	links, err := get[[]Link](ctx, s.c, item("clients", id, "links"), q)
	if links == nil {
		links = []Link{}
	}
	return links, err
}

// InboundService manages Xray inbounds and their client membership.
type InboundService struct{ c Caller }

func (s *InboundService) List(ctx context.Context, opts ListOptions) (*Page[Inbound], error) {
	return list[Inbound](ctx, s.c, "inbounds", opts.Values())
}

func (s *InboundService) Get(ctx context.Context, id uint) (Inbound, error) {
	return get[Inbound](ctx, s.c, item("inbounds", id), nil)
}

func (s *InboundService) Create(ctx context.Context, in InboundInput) (*Inbound, error) {
	return send[Inbound](ctx, s.c, http.MethodPost, "inbounds", in)
}

func (s *InboundService) Update(ctx context.Context, id uint, in InboundInput) (*Inbound, error) {
	return send[Inbound](ctx, s.c, http.MethodPut, item("inbounds", id), in)
}

func (s *InboundService) Delete(ctx context.Context, id uint) error {
	_, err := exec(ctx, s.c, http.MethodDelete, item("inbounds", id), nil)
	return err
}

// Clients lists the clients attached to an inbound.
func (s *InboundService) Clients(ctx context.Context, id uint) ([]Client, error) {
	out, err := get[[]Client](ctx, s.c, item("inbounds", id, "clients"), nil)
	if out == nil {
		out = []Client{}
	}
	return out, err
}

func (s *InboundService) AddClient(ctx context.Context, id, clientID uint) error {
	body := struct {
		ClientID uint `json:"client_id"`
	}{clientID}
	_, err := exec(ctx, s.c, http.MethodPost, item("inbounds", id, "clients"), body)
	return err
}

func (s *InboundService) RemoveClient(ctx context.Context, id, clientID uint) error {
	path := item("inbounds", id, "clients", strconv.FormatUint(uint64(clientID), 10))
	_, err := exec(ctx, s.c, http.MethodDelete, path, nil)
	return err
}

// OutboundService manages Xray outbounds.
type OutboundService struct{ c Caller }

func (s *OutboundService) List(ctx context.Context, opts ListOptions) (*Page[Outbound], error) {
	return list[Outbound](ctx, s.c, "outbounds", opts.Values())
}

func (s *OutboundService) Get(ctx context.Context, id uint) (Outbound, error) {
	return get[Outbound](ctx, s.c, item("outbounds", id), nil)
}

func (s *OutboundService) Create(ctx context.Context, in OutboundInput) (*Outbound, error) {
	return send[Outbound](ctx, s.c, http.MethodPost, "outbounds", in)
}

func (s *OutboundService) Update(ctx context.Context, id uint, in OutboundInput) (*Outbound, error) {
	return send[Outbound](ctx, s.c, http.MethodPut, item("outbounds", id), in)
}

func (s *OutboundService) Delete(ctx context.Context, id uint) error {
	_, err := exec(ctx, s.c, http.MethodDelete, item("outbounds", id), nil)
	return err
}

// CertificateService manages ACME certificates.
type CertificateService struct{ c Caller }

func (s *CertificateService) List(ctx context.Context, opts ListOptions) (*Page[Certificate], error) {
	return list[Certificate](ctx, s.c, "certificates", opts.Values())
}

func (s *CertificateService) Get(ctx context.Context, id uint) (Certificate, error) {
	return get[Certificate](ctx, s.c, item("certificates", id), nil)
}

// Request asks the panel to obtain a certificate for domain.
func (s *CertificateService) Request(ctx context.Context, domain, email string) (*Certificate, error) {
	body := struct {
		Domain string `json:"domain"`
		Email  string `json:"email"`
	}{domain, email}
	return send[Certificate](ctx, s.c, http.MethodPost, "certificates", body)
}

func (s *CertificateService) Renew(ctx context.Context, id uint) error {
	_, err := exec(ctx, s.c, http.MethodPost, item("certificates", id, "renew"), nil)
	return err
}

func (s *CertificateService) SetAutoRenew(ctx context.Context, id uint, on bool) error {
	body := struct {
		AutoRenew bool `json:"auto_renew"`
	}{on}
	_, err := exec(ctx, s.c, http.MethodPut, item("certificates", id, "auto-renew"), body)
	return err
}

func (s *CertificateService) Delete(ctx context.Context, id uint) error {
	_, err := exec(ctx, s.c, http.MethodDelete, item("certificates", id), nil)
	return err
}
