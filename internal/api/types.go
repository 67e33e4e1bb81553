package api

import (
	"encoding/json"
	"time"
)

// User is a panel operator account.
type User struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Role      string     `json:"role"`
	Nickname  string     `json:"nickname"`
	TwoFA     bool       `json:"two_fa"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	Status    int        `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether the account may log in.
func (u User) Active() bool { return u.Status == 1 }

// CreateUser is the body of POST users.
type CreateUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Nickname string `json:"nickname,omitempty"`
}

// UpdateUser is the body of PUT users/:id. Empty fields are left unchanged.
type UpdateUser struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Status   *int   `json:"status,omitempty"`
}

// Client is a proxy end user. Traffic fields are in bytes; a zero TotalGB
// means unlimited.
type Client struct {
	ID          uint       `json:"id"`
	UUID        string     `json:"uuid"`
	Email       string     `json:"email"`
	Remark      string     `json:"remark"`
	Enable      bool       `json:"enable"`
	TotalGB     int64      `json:"total_gb"`
	UsedGB      int64      `json:"used_gb"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
	CreatedByID uint       `json:"created_by_id"`
	CreatedBy   *User      `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Unlimited reports whether the client has no traffic quota.
func (c Client) Unlimited() bool { return c.TotalGB <= 0 }

// Remaining returns the unused quota in bytes, or -1 when unlimited.
func (c Client) Remaining() int64 {
	if c.Unlimited() {
		return -1
	}
	if c.UsedGB >= c.TotalGB {
		return 0
	}
	return c.TotalGB - c.UsedGB
}

// Expired reports whether the client's expiry lies at or before now.
func (c Client) Expired(now time.Time) bool {
	return c.ExpireAt != nil && !now.Before(*c.ExpireAt)
}

// CreateClient is the body of POST clients.
type CreateClient struct {
	Email    string     `json:"email"`
	Remark   string     `json:"remark,omitempty"`
	TotalGB  int64      `json:"total_gb"`
	ExpireAt *time.Time `json:"expire_at,omitempty"`
}

// UpdateClient is the body of PUT clients/:id.
type UpdateClient struct {
	Email    string     `json:"email,omitempty"`
	Remark   string     `json:"remark,omitempty"`
	Enable   *bool      `json:"enable,omitempty"`
	TotalGB  *int64     `json:"total_gb,omitempty"`
	ExpireAt *time.Time `json:"expire_at,omitempty"`
}

// Link is a share link generated for one of a client's inbounds.
type Link struct {
	Protocol string `json:"protocol"`
	Tag      string `json:"tag"`
	Port     int    `json:"port"`
	Link     string `json:"link"`
	Remark   string `json:"remark"`
}

// Inbound is an Xray inbound. Settings fields hold JSON text.
type Inbound struct {
	ID             uint      `json:"id"`
	Tag            string    `json:"tag"`
	Protocol       string    `json:"protocol"`
	Port           int       `json:"port"`
	Listen         string    `json:"listen"`
	Settings       string    `json:"settings"`
	StreamSettings string    `json:"stream_settings"`
	Sniffing       string    `json:"sniffing"`
	Enable         bool      `json:"enable"`
	Remark         string    `json:"remark"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InboundInput is the body of POST and PUT inbounds.
type InboundInput struct {
	Tag            string          `json:"tag,omitempty"`
	Protocol       string          `json:"protocol,omitempty"`
	Port           int             `json:"port,omitempty"`
	Listen         string          `json:"listen,omitempty"`
	Settings       json.RawMessage `json:"settings,omitempty"`
	StreamSettings json.RawMessage `json:"stream_settings,omitempty"`
	Sniffing       json.RawMessage `json:"sniffing,omitempty"`
	Enable         *bool           `json:"enable,omitempty"`
	Remark         string          `json:"remark,omitempty"`
}

// Outbound is an Xray outbound.
type Outbound struct {
	ID             uint      `json:"id"`
	Tag            string    `json:"tag"`
	Protocol       string    `json:"protocol"`
	Settings       string    `json:"settings"`
	StreamSettings string    `json:"stream_settings"`
	ProxySettings  string    `json:"proxy_settings"`
	Mux            string    `json:"mux"`
	Enable         bool      `json:"enable"`
	Remark         string    `json:"remark"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OutboundInput is the body of POST and PUT outbounds.
type OutboundInput struct {
	Tag            string          `json:"tag,omitempty"`
	Protocol       string          `json:"protocol,omitempty"`
	Settings       json.RawMessage `json:"settings,omitempty"`
	StreamSettings json.RawMessage `json:"stream_settings,omitempty"`
	ProxySettings  json.RawMessage `json:"proxy_settings,omitempty"`
	Mux            json.RawMessage `json:"mux,omitempty"`
	Enable         *bool           `json:"enable,omitempty"`
	Remark         string          `json:"remark,omitempty"`
}

// Certificate statuses.
const (
	CertPending = "pending"
	CertActive  = "active"
	CertExpired = "expired"
	CertError   = "error"
)

// Certificate is a TLS certificate managed by the panel.
type Certificate struct {
	ID        uint      `json:"id"`
	Domain    string    `json:"domain"`
	Email     string    `json:"email"`
	CertPath  string    `json:"cert_path"`
	KeyPath   string    `json:"key_path"`
	ExpireAt  time.Time `json:"expire_at"`
	AutoRenew bool      `json:"auto_renew"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpiresWithin reports whether the certificate expires before now+d.
func (c Certificate) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !c.ExpireAt.IsZero() && c.ExpireAt.Before(now.Add(d))
}

// TrafficSummary is the dashboard aggregate.
type TrafficSummary struct {
	TotalUpload   int64 `json:"total_upload"`
	TotalDownload int64 `json:"total_download"`
	TotalClients  int64 `json:"total_clients"`
	ActiveClients int64 `json:"active_clients"`
}

// DailyTraffic is one day of summed traffic.
type DailyTraffic struct {
	Date     string `json:"date"`
	Upload   int64  `json:"upload"`
	Download int64  `json:"download"`
}

// TrafficStat is one per-client, per-inbound daily row.
type TrafficStat struct {
	ID        uint   `json:"id"`
	ClientID  uint   `json:"client_id"`
	InboundID uint   `json:"inbound_id"`
	Upload    int64  `json:"upload"`
	Download  int64  `json:"download"`
	Date      string `json:"date"`
}

// Total is upload plus download.
func (s TrafficStat) Total() int64 { return s.Upload + s.Download }

// SystemStatus describes the panel host.
type SystemStatus struct {
	Hostname    string     `json:"hostname"`
	Platform    string     `json:"platform"`
	OS          string     `json:"os"`
	Arch        string     `json:"arch"`
	Uptime      uint64     `json:"uptime"`
	CPU         CPUStatus  `json:"cpu"`
	Memory      UsageStats `json:"memory"`
	Disk        UsageStats `json:"disk"`
	XrayRunning bool       `json:"xray_running"`
	XrayVersion string     `json:"xray_version"`
}

// CPUStatus holds the core count and per-core usage percentages.
type CPUStatus struct {
	Cores int       `json:"cores"`
	Usage []float64 `json:"usage"`
}

// UsageStats is used for both memory and disk.
type UsageStats struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// PortCheck is the result of system/check-port.
type PortCheck struct {
	Port      int  `json:"port"`
	TCPInUse  bool `json:"tcp_in_use"`
	UDPInUse  bool `json:"udp_in_use"`
	Available bool `json:"available"`
}

// UpdateInfo is the result of system/check-update.
type UpdateInfo struct {
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`
	HasUpdate      bool   `json:"has_update"`
	ReleaseURL     string `json:"release_url"`
}

// AuditLog is one recorded operator action.
type AuditLog struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	User       *User     `json:"user,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID uint      `json:"resource_id"`
	Detail     string    `json:"detail"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
