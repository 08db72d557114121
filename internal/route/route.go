// Package route decides which role a shared link opens: the host, a player joining a
// specific host, or the landing screen.
package route

import (
	"net/url"
	"strings"
)

type Role int

const (
	RoleLanding Role = iota
	RoleHost
	RolePlayer
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RolePlayer:
		return "player"
	default:
		return "landing"
	}
}

// Route is the result of parsing a link. Target is the host address a player joins.
type Route struct {
	Role   Role
	Target string
}

const joinKey = "join="

// Parse reads the fragment of link, which may be a full URL, "#fragment" or a bare fragment.
//
//	#join=<address>  player joining <address>
//	#host            host
//	anything else    landing
func Parse(link string) Route {
	fragment := link
	if i := strings.IndexByte(link, '#'); i >= 0 {
		fragment = link[i+1:]
	} else if strings.Contains(link, "://") {
		fragment = ""
	}

	switch {
	case fragment == "host":
		return Route{Role: RoleHost}
	case strings.HasPrefix(fragment, joinKey):
		target := fragment[len(joinKey):]
		if unescaped, err := url.QueryUnescape(target); err == nil {
			target = unescaped
		}
		if target == "" {
			return Route{Role: RoleLanding}
		}
		return Route{Role: RolePlayer, Target: target}
	default:
		return Route{Role: RoleLanding}
	}
}

// JoinLink builds the link players open to join the host behind code.
func JoinLink(baseURL, code string) string {
	base := baseURL
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimRight(base, "/") + "/#" + joinKey + url.QueryEscape(code)
}
