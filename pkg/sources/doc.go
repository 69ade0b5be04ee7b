/*
Package sources builds fragment script loaders from declarative manifest blocks.

A fragment without a source block has no loader: the engine treats navigation
to its routes as an external link. Built-in source types:

  - static: markup (a text/template over the state) or Markdown rendered to HTML.
  - remote: markup fetched over HTTP from an RFC 6570 URL template.
  - redirect: a legacy version 3 script that pushes a new history entry.

Additional types are added with Registry.Register.
*/
package sources
