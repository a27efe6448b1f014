package mcpserver

// SyntaxGuide describes how note text turns into index facts. It is served
// as a resource so callers can phrase tag and link queries correctly.
const SyntaxGuide = `# zettel indexing rules

Every ` + "`" + `.md` + "`" + ` file under the wiki root is one note. The index stores, per note:

## Title

The text of the first level-1 header (` + "`" + `# Title` + "`" + `). A note without one is
titled by its path relative to the wiki root.

## Headers

Lines starting with one to six ` + "`" + `#` + "`" + ` followed by a single space. The level is the
number of ` + "`" + `#` + "`" + ` characters.

## Tags

Every occurrence of ` + "`" + `#` + "`" + ` followed by letters, digits, ` + "`" + `-` + "`" + `, ` + "`" + `.` + "`" + ` or ` + "`" + `_` + "`" + `
anywhere in the body. The stored tag keeps its ` + "`" + `#` + "`" + `; repeats are kept.
` + "`" + `search_tags` + "`" + ` matches any tag containing the query.

## Links

- ` + "`" + `[label](target)` + "`" + ` is stored with that label and target.
- ` + "`" + `[[target]]` + "`" + ` is stored with the target as its own label.

` + "`" + `search_links` + "`" + ` matches targets containing the query, so searching for a
note's file name or path lists its backlinks.

## Full text

The whole body is searchable with ` + "`" + `search_fulltext` + "`" + `; results are ordered by
relevance.
`
