// Package catalog serves the static learning material: the common errors
// accordion, downloadable source code templates and mini projects.
//
// The catalog is embedded YAML. Extra entries can be layered on top from a
// directory of YAML files; an entry whose id already exists replaces it.
// Code samples are highlighted through goldmark and chroma, and previews are
// handed to the sandbox as ordinary source bundles.
package catalog
