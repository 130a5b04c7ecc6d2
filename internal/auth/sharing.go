package auth

import (
	"fmt"
	"strings"
)

// ReadMetadata is the access pattern granting metadata read; the first letter
// of a sharing access string is the metadata read flag.
const ReadMetadata = "r%"

// SharingCheckSQL generates the row-level sharing predicate for the table
// known under alias. The sharing document has the shape
//
//	{"owner": uid, "public": "rw------",
//	 "users": {uid: {"access": "r-------"}},
//	 "userGroups": {uid: {"access": "r-------"}}}
//
// A row is readable when its public access matches, the principal owns it, or
// the principal (directly or through a group) was granted matching access.
// The predicate text is identical regardless of the alias' nesting depth so
// it can be embedded at the root, in correlated subqueries and in exists
// filters alike.
func SharingCheckSQL(alias string, user *User, access string) string {
	sharing := alias + `."sharing"`
	var clauses []string
	clauses = append(clauses,
		fmt.Sprintf(`%s->>'public' like %s`, sharing, quoteLit(access)),
		fmt.Sprintf(`%s->>'public' is null`, sharing),
	)
	if user != nil && user.UID != "" {
		clauses = append(clauses,
			fmt.Sprintf(`%s->>'owner' = %s`, sharing, quoteLit(user.UID)),
			fmt.Sprintf(`jsonb_extract_path_text(%s, 'users', %s, 'access') like %s`,
				sharing, quoteLit(user.UID), quoteLit(access)),
		)
		for _, group := range user.GroupUIDs {
			clauses = append(clauses,
				fmt.Sprintf(`jsonb_extract_path_text(%s, 'userGroups', %s, 'access') like %s`,
					sharing, quoteLit(group), quoteLit(access)),
			)
		}
	}
	return strings.Join(clauses, " or ")
}

// quoteLit returns a single-quoted SQL string literal with escaping.
func quoteLit(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
