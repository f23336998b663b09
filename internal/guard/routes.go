package guard

import (
	"strings"

	"github.com/frahmantamala/asubt-console/internal/session"
)

// Access is the least privilege a route needs.
type Access int

const (
	Public Access = iota
	Authenticated
	Admin
	SuperAdmin
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	case SuperAdmin:
		return "superadmin"
	}
	return "unknown"
}

// permits reports whether role satisfies a. Role checks go through the
// session predicates only.
func (a Access) permits(s *session.Session) bool {
	switch a {
	case Public:
		return true
	case Authenticated:
		return s.IsAuthenticated()
	case Admin:
		return s.IsAdmin()
	case SuperAdmin:
		return s.IsSuperAdmin()
	}
	return false
}

// Route is one screen of the dashboard.
type Route struct {
	Path        string `json:"path"`
	Access      Access `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// Module marks the placeholder screens that have no controller yet.
	Module bool `json:"module,omitempty"`
}

const (
	LoginPath   = "/login"
	DefaultPath = "/dashboard"
)

var routes = []Route{
	{Path: LoginPath, Access: Public, Title: "Вход в систему"},
	{Path: "/", Access: Authenticated, Title: "АСУБТ"},
	{Path: DefaultPath, Access: Authenticated, Title: "АСУБТ"},
	{Path: "/admin", Access: Admin, Title: "Панель администратора АСУБТ"},
	{Path: "/superadmin", Access: SuperAdmin, Title: "Панель главного администратора АСУБТ"},
	{Path: "/admin/documents", Access: Admin, Title: "Управление документами", Description: "Управление документацией по ОТ"},
	{Path: "/admin/events", Access: Admin, Title: "Управление мероприятиями", Description: "Управление мероприятиями по ОТ"},
	{Path: "/admin/calendar", Access: Admin, Title: "Календарь мероприятий", Description: "Планирование и напоминания"},
	{Path: "/admin/reports", Access: Admin, Title: "Отчётность АСУБТ", Description: "Формирование и экспорт отчётов"},
	{Path: "/admin/training", Access: Authenticated, Module: true, Title: "Обучение и инструктажи", Description: "Учет обучения и проверки знаний"},
	{Path: "/admin/sout", Access: Authenticated, Module: true, Title: "Специальная оценка условий труда (СОУТ)", Description: "Специальная оценка условий труда"},
	{Path: "/admin/siz", Access: Authenticated, Module: true, Title: "Средства индивидуальной защиты (СИЗ)", Description: "Учет и выдача средств индивидуальной защиты"},
	{Path: "/admin/medical", Access: Authenticated, Module: true, Title: "Медицинские осмотры", Description: "Учет медицинских осмотров"},
	{Path: "/admin/incidents", Access: Authenticated, Module: true, Title: "Учет происшествий", Description: "Регистрация и расследование несчастных случаев"},
	{Path: "/admin/control", Access: Authenticated, Module: true, Title: "Производственный контроль", Description: "Контроль соблюдения требований ОТ"},
}

// Routes returns the route table in declaration order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Lookup finds the route for path. Trailing slashes are ignored.
func Lookup(path string) (Route, bool) {
	path = Clean(path)
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Clean strips the query and trailing slashes from a navigation target.
func Clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
