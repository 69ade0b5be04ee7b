/*
Package config reads Tessera manifests.

A manifest file is YAML (JSON documents are valid YAML and load the same way):

	import_timeout: 2s
	slots:
	  - name: header
	  - name: main
	    error_markup: "<p class=error>{{.Error}}</p>"
	fragments:
	  - name: nav
	    slots: [header]
	    source: {type: static, markup: "<nav>{{.Route}}</nav>"}
	  - name: docs
	    slots: [main]
	routes:
	  - name: home
	    path: /
	    fragments: [nav, {name: docs, slot: main}]

A fragment without a source is unmanaged: navigating to its routes is treated
as an external link. Source blocks are turned into loaders by a
sources.Registry.
*/
package config
