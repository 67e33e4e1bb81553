package ui

import (
	"strconv"
	"time"

	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/api"
)

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

// Now is the time source for relative expiry columns.
var Now = time.Now

// Clients is the client list.
var Clients = Table[api.Client]{
	ID: "clients", Title: "Clients", Paginated: true, EmptyText: "No results",
	Columns: []Column[api.Client]{
		{Key: "id", Label: "ID", Width: 5, Value: func(c api.Client, _ *message.Printer) string { return id(c.ID) }},
		{Key: "email", Label: "Email", Width: 24, Value: func(c api.Client, _ *message.Printer) string { return c.Email }},
		{Key: "remark", Label: "Remark", Width: 16, Value: func(c api.Client, _ *message.Printer) string { return c.Remark }},
		{Key: "enable", Label: "Status", Width: 9, Value: func(c api.Client, p *message.Printer) string {
			if c.Enable && c.Expired(Now()) {
				return translate(p, "expired")
			}
			return Enabled(c.Enable, p)
		}},
		{Key: "used", Label: "Used", Width: 11, Value: func(c api.Client, _ *message.Printer) string { return Bytes(c.UsedGB) }},
		{Key: "quota", Label: "Quota", Width: 11, Value: func(c api.Client, p *message.Printer) string { return Quota(c.TotalGB, p) }},
		{Key: "usage", Label: "Usage", Width: 7, Value: func(c api.Client, _ *message.Printer) string { return Percent(c.UsedGB, c.TotalGB) }},
		{Key: "expire", Label: "Expires", Width: 32, Value: func(c api.Client, p *message.Printer) string { return Expiry(c.ExpireAt, Now(), p) }},
		{Key: "uuid", Label: "UUID", Width: 36, Value: func(c api.Client, _ *message.Printer) string { return c.UUID }},
	},
}

// Inbounds is the inbound list.
var Inbounds = Table[api.Inbound]{
	ID: "inbounds", Title: "Inbounds", Paginated: true, EmptyText: "No results",
	Columns: []Column[api.Inbound]{
		{Key: "id", Label: "ID", Width: 5, Value: func(i api.Inbound, _ *message.Printer) string { return id(i.ID) }},
		{Key: "tag", Label: "Tag", Width: 18, Value: func(i api.Inbound, _ *message.Printer) string { return i.Tag }},
		{Key: "protocol", Label: "Protocol", Width: 12, Value: func(i api.Inbound, _ *message.Printer) string { return i.Protocol }},
		{Key: "listen", Label: "Listen", Width: 22, Value: func(i api.Inbound, _ *message.Printer) string {
			return i.Listen + ":" + strconv.Itoa(i.Port)
		}},
		{Key: "enable", Label: "Status", Width: 9, Value: func(i api.Inbound, p *message.Printer) string { return Enabled(i.Enable, p) }},
		{Key: "remark", Label: "Remark", Width: 20, Value: func(i api.Inbound, _ *message.Printer) string { return i.Remark }},
	},
}

// Outbounds is the outbound list.
var Outbounds = Table[api.Outbound]{
	ID: "outbounds", Title: "Outbounds", Paginated: true, EmptyText: "No results",
	Columns: []Column[api.Outbound]{
		{Key: "id", Label: "ID", Width: 5, Value: func(o api.Outbound, _ *message.Printer) string { return id(o.ID) }},
		{Key: "tag", Label: "Tag", Width: 18, Value: func(o api.Outbound, _ *message.Printer) string { return o.Tag }},
		{Key: "protocol", Label: "Protocol", Width: 12, Value: func(o api.Outbound, _ *message.Printer) string { return o.Protocol }},
		{Key: "enable", Label: "Status", Width: 9, Value: func(o api.Outbound, p *message.Printer) string { return Enabled(o.Enable, p) }},
		{Key: "remark", Label: "Remark", Width: 24, Value: func(o api.Outbound, _ *message.Printer) string { return o.Remark }},
	},
}

// Certificates is the certificate list.
var Certificates = Table[api.Certificate]{
	ID: "certificates", Title: "Certificates", Paginated: true, EmptyText: "No results",
	Columns: []Column[api.Certificate]{
		{Key: "id", Label: "ID", Width: 5, Value: func(c api.Certificate, _ *message.Printer) string { return id(c.ID) }},
		{Key: "domain", Label: "Domain", Width: 28, Value: func(c api.Certificate, _ *message.Printer) string { return c.Domain }},
		{Key: "status", Label: "Status", Width: 9, Value: func(c api.Certificate, _ *message.Printer) string { return c.Status }},
		{Key: "expire", Label: "Expires", Width: 32, Value: func(c api.Certificate, p *message.Printer) string {
			if c.ExpireAt.IsZero() {
				return "-"
			}
			return Expiry(&c.ExpireAt, Now(), p)
		}},
		{Key: "auto_renew", Label: "Auto renew", Width: 10, Value: func(c api.Certificate, p *message.Printer) string { return Enabled(c.AutoRenew, p) }},
		{Key: "error", Label: "Last error", Width: 24, Value: func(c api.Certificate, _ *message.Printer) string { return c.LastError }},
	},
}

// Users is the panel account list.
var Users = Table[api.User]{
	ID: "users", Title: "Users", Paginated: true, EmptyText: "No results",
	Columns: []Column[api.User]{
		{Key: "id", Label: "ID", Width: 5, Value: func(u api.User, _ *message.Printer) string { return id(u.ID) }},
		{Key: "username", Label: "Username", Width: 16, Value: func(u api.User, _ *message.Printer) string { return u.Username }},
		{Key: "email", Label: "Email", Width: 24, Value: func(u api.User, _ *message.Printer) string { return u.Email }},
		{Key: "role", Label: "Role", Width: 9, Value: func(u api.User, _ *message.Printer) string { return u.Role }},
		{Key: "status", Label: "Status", Width: 9, Value: func(u api.User, p *message.Printer) string { return Enabled(u.Active(), p) }},
		{Key: "last_login", Label: "Last login", Width: 17, Value: func(u api.User, _ *message.Printer) string {
			if u.LastLogin == nil {
				return "-"
			}
			return Timestamp(*u.LastLogin)
		}},
	},
}

// Audit is the audit trail.
var Audit = Table[api.AuditLog]{
	ID: "audit", Title: "Audit Log", Paginated: true, EmptyText: "No results",
	Columns: []Column[api.AuditLog]{
		{Key: "time", Label: "Time", Width: 17, Value: func(a api.AuditLog, _ *message.Printer) string { return Timestamp(a.CreatedAt) }},
		{Key: "user", Label: "User", Width: 14, Value: func(a api.AuditLog, _ *message.Printer) string {
			if a.User != nil && a.User.Username != "" {
				return a.User.Username
			}
			return "#" + id(a.UserID)
		}},
		{Key: "action", Label: "Action", Width: 12, Value: func(a api.AuditLog, _ *message.Printer) string { return a.Action }},
		{Key: "resource", Label: "Resource", Width: 16, Value: func(a api.AuditLog, _ *message.Printer) string {
			if a.ResourceID == 0 {
				return a.Resource
			}
			return a.Resource + "/" + id(a.ResourceID)
		}},
		{Key: "status", Label: "Status", Width: 8, Value: func(a api.AuditLog, _ *message.Printer) string { return a.Status }},
		{Key: "ip", Label: "IP", Width: 15, Value: func(a api.AuditLog, _ *message.Printer) string { return a.IP }},
	},
}

// Daily is the per-day traffic chart data.
var Daily = Table[api.DailyTraffic]{
	ID: "traffic", Title: "Traffic", EmptyText: "No results",
	Columns: []Column[api.DailyTraffic]{
		{Key: "date", Label: "Date", Width: 11, Value: func(d api.DailyTraffic, _ *message.Printer) string { return d.Date }},
		{Key: "upload", Label: "Upload", Width: 12, Value: func(d api.DailyTraffic, _ *message.Printer) string { return Bytes(d.Upload) }},
		{Key: "download", Label: "Download", Width: 12, Value: func(d api.DailyTraffic, _ *message.Printer) string { return Bytes(d.Download) }},
		{Key: "total", Label: "Total", Width: 12, Value: func(d api.DailyTraffic, _ *message.Printer) string {
			return Bytes(d.Upload + d.Download)
		}},
	},
}

// Traffic is the per-client or per-inbound daily rows.
var Traffic = Table[api.TrafficStat]{
	ID: "traffic_rows", Title: "Traffic", EmptyText: "No results",
	Columns: []Column[api.TrafficStat]{
		{Key: "date", Label: "Date", Width: 11, Value: func(s api.TrafficStat, _ *message.Printer) string { return s.Date }},
		{Key: "client", Label: "Client", Width: 7, Value: func(s api.TrafficStat, _ *message.Printer) string { return id(s.ClientID) }},
		{Key: "inbound", Label: "Inbound", Width: 7, Value: func(s api.TrafficStat, _ *message.Printer) string { return id(s.InboundID) }},
		{Key: "upload", Label: "Upload", Width: 12, Value: func(s api.TrafficStat, _ *message.Printer) string { return Bytes(s.Upload) }},
		{Key: "download", Label: "Download", Width: 12, Value: func(s api.TrafficStat, _ *message.Printer) string { return Bytes(s.Download) }},
	},
}

// Links is the share-link list of a client.
var Links = Table[api.Link]{
	ID: "links", Title: "Links", EmptyText: "No results",
	Columns: []Column[api.Link]{
		{Key: "tag", Label: "Tag", Width: 16, Value: func(l api.Link, _ *message.Printer) string { return l.Tag }},
		{Key: "protocol", Label: "Protocol", Width: 12, Value: func(l api.Link, _ *message.Printer) string { return l.Protocol }},
		{Key: "port", Label: "Port", Width: 6, Value: func(l api.Link, _ *message.Printer) string { return strconv.Itoa(l.Port) }},
		{Key: "link", Label: "Link", Width: 60, Value: func(l api.Link, _ *message.Printer) string { return l.Link }},
	},
}
