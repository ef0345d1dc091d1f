package findings

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// IdentityHasher computes the stable identity hash used to de-duplicate
// findings across runs. It is a pure function of the
// concatenation "{repo}|{branch}|{ruleID}|{relativePath}|{triggerText}",
// MD5-digested and upper-cased hex. MD5 is used as a content-addressing
// token here, not a security primitive, matching the reference
// implementation (original_source/src/utils/hash.rs).
type IdentityHasher struct {
	RepoName string
	Branch   string
}

// Hash computes the digest for one rule match against one node's text.
func (h IdentityHasher) Hash(ruleID, relativePath, triggerText string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s", h.RepoName, h.Branch, ruleID, relativePath, triggerText)
	sum := md5.Sum([]byte(data))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
