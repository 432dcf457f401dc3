package domain

import dErrors "coopaml/pkg/domain-errors"

// ListType identifies which sanction source a record or match came from.
// The engine screens against two independent lists: the UN consolidated list
// and the domestic Home Ministry list. The Home Ministry list additionally
// carries national identity numbers.
type ListType string

const (
	ListTypeUN           ListType = "UN"
	ListTypeHomeMinistry ListType = "HOME_MINISTRY"
)

// AllListTypes returns the supported sanction sources in screening order.
func AllListTypes() []ListType {
	return []ListType{ListTypeUN, ListTypeHomeMinistry}
}

// Valid reports whether lt names a supported sanction source.
func (lt ListType) Valid() bool {
	return lt == ListTypeUN || lt == ListTypeHomeMinistry
}

// ParseListType parses a list type from its wire form.
func ParseListType(s string) (ListType, error) {
	lt := ListType(s)
	if !lt.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown list type %q", s)
	}
	return lt, nil
}
