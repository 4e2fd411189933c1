package mongo

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPage  = 1
	defaultLimit = 100
)

// versionField is the internal metadata field that is never exposed,
// whatever the caller's field allow-list says.
const versionField = "__v"

// reservedParams are consumed by the builder itself and never become
// filters.
var reservedParams = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

// comparisonOps maps the textual operator suffixes accepted in query keys
// (price[gte]=100) to the native MongoDB operators.
var comparisonOps = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

// Features translates raw query-string parameters into a MongoDB filter and
// find options. Calls chain:
//
//	filter, opts := NewFeatures(params).Filter().Sort().LimitFields().Paginate().Build()
//
// Invalid pagination values degrade to defaults rather than erroring; list
// browsing favours availability over strictness.
type Features struct {
	params url.Values
	filter bson.M
	opts   *options.FindOptions
}

// NewFeatures creates a builder over the given query-string parameters.
func NewFeatures(params url.Values) *Features {
	return &Features{params: params, filter: bson.M{}, opts: options.Find()}
}

// Filter turns every non-reserved parameter into an equality or comparison
// filter. A key of the form field[op] with op in {gte,gt,lte,lt} is rewritten
// to the native operator; no other key is mutated.
func (f *Features) Filter() *Features {
	for key, values := range f.params {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		if len(values) == 0 || key == "" {
			continue
		}
		value := coerceValue(values[0])

		field, op, ok := splitComparison(key)
		if !ok {
			f.filter[key] = value
			continue
		}
		cond, exists := f.filter[field].(bson.M)
		if !exists {
			cond = bson.M{}
			f.filter[field] = cond
		}
		cond[op] = value
	}
	return f
}

// Sort applies the comma-separated sort list in left-to-right priority, a
// leading '-' meaning descending. Without a sort parameter the newest
// documents come first, tie-broken by _id so pagination stays stable.
func (f *Features) Sort() *Features {
	sort := bson.D{}
	for _, field := range strings.Split(f.params.Get("sort"), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		if field == "" {
			continue
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	if len(sort) == 0 {
		sort = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	}
	f.opts.SetSort(sort)
	return f
}

// LimitFields projects the comma-separated field allow-list. The version
// metadata field is excluded regardless of the list.
func (f *Features) LimitFields() *Features {
	raw := f.params.Get("fields")
	if raw == "" {
		f.opts.SetProjection(bson.M{versionField: 0})
		return f
	}

	projection := bson.D{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == versionField {
			continue
		}
		projection = append(projection, bson.E{Key: field, Value: 1})
	}
	if len(projection) == 0 {
		f.opts.SetProjection(bson.M{versionField: 0})
		return f
	}
	f.opts.SetProjection(projection)
	return f
}

// Paginate computes skip = (page-1)*limit with page defaulting to 1 and
// limit to 100. Non-numeric or non-positive values fall back to the default.
func (f *Features) Paginate() *Features {
	page := positiveInt(f.params.Get("page"), defaultPage)
	limit := positiveInt(f.params.Get("limit"), defaultLimit)

	f.opts.SetSkip(int64(page-1) * int64(limit))
	f.opts.SetLimit(int64(limit))
	return f
}

// Build returns the accumulated filter and find options.
func (f *Features) Build() (bson.M, *options.FindOptions) {
	return f.filter, f.opts
}

// splitComparison parses keys of the form field[op], returning the native
// operator for op.
func splitComparison(key string) (field, op string, ok bool) {
	if !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return "", "", false
	}
	native, known := comparisonOps[key[open+1:len(key)-1]]
	if !known {
		return "", "", false
	}
	return key[:open], native, true
}

// coerceValue types a raw parameter so numeric and boolean comparisons work
// against typed document fields.
func coerceValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil {
		return fl
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
