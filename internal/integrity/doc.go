// Package integrity checks that image links and aliases in a document form a
// one-to-one correspondence.
//
// Every image contributes one (link, alias) pair. A link may only ever carry
// one alias and an alias may only ever name one link. A link that never gets
// an alias anywhere in the document is an orphan. Aliases are not checked for
// orphan status since the image grammar cannot produce an alias without a link.
package integrity
