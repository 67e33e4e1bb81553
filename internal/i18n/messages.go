package i18n

// simplifiedChinese translates the user-facing strings of the console.
// Keys are the English format strings passed to Printer.Sprintf.
var simplifiedChinese = map[string]string{
	// session
	"Logged in as %s (%s)":                     "已登录：%s（%s）",
	"Logged out":                               "已退出登录",
	"Not logged in":                            "未登录",
	"Session expired, please log in again":     "登录已过期，请重新登录",
	"Password changed":                         "密码修改成功",
	"Panel initialized, log in as %s":          "面板初始化完成，请使用 %s 登录",
	"Panel is already initialized":             "面板已初始化",
	"Panel is not initialized, run init first": "面板尚未初始化，请先执行 init",
	"Username":                                 "用户名",
	"Password":                                 "密码",
	"Email":                                    "邮箱",
	"Current password":                         "当前密码",
	"New password":                             "新密码",
	"Log in":                                   "登录",
	"Password strength: %s":                    "密码强度：%s",
	"very weak":                                "非常弱",
	"weak":                                     "弱",
	"fair":                                     "一般",
	"strong":                                   "强",
	"very strong":                              "非常强",
	"Too many login attempts, try again in %s": "登录尝试次数过多，请在 %s 后重试",
	"expired":                                  "已过期",
	"Expired":                                  "已过期",
	"[1-9/tab] switch":                         "[1-9/tab] 切换",
	"[[] back":                                 "[[] 后退",
	"[]] forward":                              "[]] 前进",
	"[r] refresh":                              "[r] 刷新",
	"[L] logout":                               "[L] 退出",
	"[q] quit":                                 "[q] 离开",
	"Certificate":                              "证书",
	"Panel certificate fingerprint is %s; set fingerprint in the config to trust it": "面板证书指纹为 %s；在配置中设置 fingerprint 以信任该证书",
	"Passwords do not match":                   "两次输入的密码不一致",
	"Confirm password":                         "确认密码",
	"Username or email":                        "用户名或邮箱",
	"Capabilities":                             "权限",
	"Error: %v":                                "错误：%v",

	// cli
	"Server":                               "服务器",
	"TCP":                                  "TCP",
	"UDP":                                  "UDP",
	"Release":                              "发布页面",
	"in use":                               "已占用",
	"free":                                 "空闲",
	"Traffic reset for client %d":          "已重置用户 %d 的流量",
	"Renewal requested for certificate %d": "已提交证书 %d 的续期请求",

	// routing
	"Access denied, %s requires administrator rights": "无权访问，%s 需要管理员权限",
	"Redirected to %s (%s)":                           "已跳转到 %s（%s）",
	"Allowed: %s":                                     "允许访问：%s",

	// route titles
	"Login":        "登录",
	"Setup":        "初始化",
	"Dashboard":    "仪表盘",
	"Inbounds":     "入站管理",
	"Outbounds":    "出站管理",
	"Clients":      "用户管理",
	"Certificates": "证书管理",
	"Traffic":      "流量统计",
	"Audit Log":    "审计日志",
	"Users":        "系统用户",
	"Settings":     "系统设置",

	// output
	"No results":               "暂无数据",
	"Page %d of %d (%d total)": "第 %d/%d 页（共 %d 条）",
	"unlimited":                "不限",
	"never":                    "永不过期",
	"enabled":                  "启用",
	"disabled":                 "禁用",
	"running":                  "运行中",
	"stopped":                  "已停止",
	"Network error":            "网络错误",

	// columns and labels
	"ID":               "ID",
	"Remark":           "备注",
	"Status":           "状态",
	"Used":             "已用",
	"Quota":            "流量限额",
	"Usage":            "使用率",
	"Expires":          "到期时间",
	"UUID":             "UUID",
	"Tag":              "标签",
	"Protocol":         "协议",
	"Listen":           "监听",
	"Domain":           "域名",
	"Auto renew":       "自动续签",
	"Last error":       "最近错误",
	"Role":             "角色",
	"Last login":       "最近登录",
	"Time":             "时间",
	"User":             "用户",
	"Action":           "操作",
	"Resource":         "资源",
	"IP":               "IP",
	"Date":             "日期",
	"Upload":           "上传",
	"Download":         "下载",
	"Total":            "合计",
	"Client":           "客户端",
	"Inbound":          "入站",
	"Port":             "端口",
	"Link":             "链接",
	"Links":            "订阅链接",
	"Hostname":         "主机名",
	"Platform":         "平台",
	"Uptime":           "运行时间",
	"CPU":              "CPU",
	"Memory":           "内存",
	"Disk":             "磁盘",
	"Xray":             "Xray",
	"Version":          "版本",
	"Upload total":     "总上传",
	"Download total":   "总下载",
	"Clients active":   "活跃用户",
	"Latest version":   "最新版本",
	"Update available": "有可用更新",
	"Up to date":       "已是最新版本",
	"Xray reloaded":    "Xray 已重载",
	"Xray restarted":   "Xray 已重启",
	"Loading...":       "加载中...",
	"System":           "系统",
	"Page":             "页",
}
