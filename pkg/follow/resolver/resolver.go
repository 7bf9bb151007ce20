// Package resolver maps symbolic request names such as
// "unconfirmed_user_followers" or "following_orgs_count" onto follower and
// followable facet queries.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/weiawesome/follow-graph/pkg/follow"
	pkglog "github.com/weiawesome/follow-graph/pkg/log"
)

// ErrUnsupportedRequest is returned for names that match no known shape or
// name an unregistered type.
var ErrUnsupportedRequest = errors.New("unsupported request")

// Side says which facet a request runs against.
type Side int

const (
	SideFollowable Side = iota
	SideFollower
)

func (s Side) String() string {
	if s == SideFollower {
		return "follower"
	}
	return "followable"
}

// Op is the kind of query a request asks for.
type Op int

const (
	OpList Op = iota
	OpCount
	OpListWithRights
	OpListUnconfirmed
	OpListAll
)

func (o Op) String() string {
	switch o {
	case OpCount:
		return "count"
	case OpListWithRights:
		return "list_with_rights"
	case OpListUnconfirmed:
		return "list_unconfirmed"
	case OpListAll:
		return "list_all"
	default:
		return "list"
	}
}

// Request is a parsed request name.
type Request struct {
	Name string
	Side Side
	Op   Op
	Type follow.TypeTag
}

// Result carries Count for OpCount requests and Entities otherwise.
type Result struct {
	Request  Request
	Count    int64
	Entities []follow.EntityRef
}

// TypeLookup resolves a canonical type name to a registered TypeTag.
// follow.Registry implements it.
type TypeLookup interface {
	Lookup(name string) (follow.TypeTag, bool)
}

type pattern struct {
	re   *regexp.Regexp
	side Side
	op   Op
}

// Order matters: the more specific shapes come first so that
// "user_followers_with_rights" is not read as a list of "user" followers.
var patterns = []pattern{
	{regexp.MustCompile(`^count_([a-z0-9_]+?)_followers$`), SideFollowable, OpCount},
	{regexp.MustCompile(`^([a-z0-9_]+?)_followers_count$`), SideFollowable, OpCount},
	{regexp.MustCompile(`^([a-z0-9_]+?)_followers_with_rights$`), SideFollowable, OpListWithRights},
	{regexp.MustCompile(`^unconfirmed_([a-z0-9_]+?)_followers$`), SideFollowable, OpListUnconfirmed},
	{regexp.MustCompile(`^all_([a-z0-9_]+?)_followers$`), SideFollowable, OpListAll},
	{regexp.MustCompile(`^([a-z0-9_]+?)_followers$`), SideFollowable, OpList},
	{regexp.MustCompile(`^following_([a-z0-9_]+?)_count$`), SideFollower, OpCount},
	{regexp.MustCompile(`^following_([a-z0-9_]+?)_with_rights$`), SideFollower, OpListWithRights},
	{regexp.MustCompile(`^following_([a-z0-9_]+)$`), SideFollower, OpList},
}

var separators = strings.NewReplacer(" ", "_", "-", "_")

// Resolver parses request names and dispatches them to facets of a Graph.
type Resolver struct {
	graph *follow.Graph
	types TypeLookup
}

func New(graph *follow.Graph, types TypeLookup) *Resolver {
	return &Resolver{graph: graph, types: types}
}

// Parse turns a request name into a Request. Names are case-insensitive and
// may use spaces or dashes in place of underscores.
func (r *Resolver) Parse(name string) (Request, error) {
	norm := separators.Replace(strings.ToLower(strings.TrimSpace(name)))
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		t, ok := r.types.Lookup(Canonical(m[1]))
		if !ok {
			return Request{}, fmt.Errorf("%w: %q names no registered type", ErrUnsupportedRequest, name)
		}
		return Request{Name: norm, Side: p.side, Op: p.op, Type: t}, nil
	}
	return Request{}, fmt.Errorf("%w: %q", ErrUnsupportedRequest, name)
}

// Resolve parses name and runs it against self.
func (r *Resolver) Resolve(ctx context.Context, self follow.Entity, name string, opts follow.ListOptions) (*Result, error) {
	req, err := r.Parse(name)
	if err != nil {
		return nil, err
	}

	l := pkglog.Ctx(ctx)
	l.Debug().
		Str(pkglog.FieldQuery, req.Name).
		Str("side", req.Side.String()).
		Str("op", req.Op.String()).
		Str("type", string(req.Type)).
		Msg("resolved request")

	res := &Result{Request: req}
	if req.Side == SideFollower {
		err = r.follower(ctx, r.graph.Follower(self), req, opts, res)
	} else {
		err = r.followable(ctx, r.graph.Followable(self), req, opts, res)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Resolver) followable(ctx context.Context, f *follow.Followable, req Request, opts follow.ListOptions, res *Result) (err error) {
	switch req.Op {
	case OpCount:
		res.Count, err = f.FollowersByTypeCount(ctx, req.Type)
	case OpListWithRights:
		res.Entities, err = f.FollowersByTypeWithRights(ctx, req.Type, opts)
	case OpListUnconfirmed:
		res.Entities, err = f.FollowersByTypeUnconfirmed(ctx, req.Type, opts)
	case OpListAll:
		res.Entities, err = f.AllFollowersByType(ctx, req.Type)
	default:
		res.Entities, err = f.FollowersByType(ctx, req.Type, opts)
	}
	return err
}

func (r *Resolver) follower(ctx context.Context, f *follow.Follower, req Request, opts follow.ListOptions, res *Result) (err error) {
	switch req.Op {
	case OpCount:
		res.Count, err = f.FollowingByTypeCount(ctx, req.Type)
	case OpListWithRights:
		res.Entities, err = f.FollowingByTypeWithRights(ctx, req.Type, opts)
	case OpList:
		res.Entities, err = f.FollowingByType(ctx, req.Type, opts)
	default:
		err = fmt.Errorf("%w: %s on follower side", ErrUnsupportedRequest, req.Op)
	}
	return err
}

// Canonical turns a plural snake_case token into a singular CamelCase type
// name: "blog_posts" becomes "BlogPost".
func Canonical(token string) string {
	words := strings.Split(inflection.Singular(token), "_")
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}
