// Package dtokit maps domain model structs to and from wire payloads
// through declaratively configured transfer models.
//
// Given a domain struct and a per-binding policy (field exclusion or
// inclusion, renaming, nesting limits, read-only/write-only/private
// marks, partial updates), the factory synthesizes a minimal transfer
// model type at bind time and builds a pair of transfer pipelines:
// wire bytes to transfer model to domain value on the way in, and
// domain value to transfer model on the way out.
//
// # Key Features
//
//   - Declarative field policy: exclude/include dotted paths, explicit
//     renames, rename strategies (camel, pascal, kebab, upper, lower)
//   - Read-only, write-only and private field marks via struct tags
//   - Arbitrarily nested models, collections, mappings, fixed arrays
//     and interface unions, with a configurable nesting depth limit
//   - Partial (PATCH) decoding that distinguishes absent from null
//   - Compiled transfer closures built once per binding, with an
//     interpreted engine available as a differential check
//   - JSON and MessagePack codecs out of the box, extensible per factory
//   - Per-field validation error accumulation in a single pass
//   - OpenAPI schema emission for every bound transfer model
//
// # Quick Start
//
// Define a domain model with transfer marks:
//
//	type Person struct {
//	    ID    uuid.UUID `json:"id" dto:"read-only"`
//	    Name  string    `json:"name"`
//	    Email string    `json:"email"`
//	}
//
// Build a factory and bind a handler:
//
//	dto, err := dtokit.New[Person](
//	    dtokit.Config{Exclude: []string{"email"}, MaxNestedDepth: 1},
//	    dtokit.WithIntrospector(structtag.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = dto.OnRegistration(ctx, "createPerson", dtokit.DirectionData,
//	    reflect.TypeFor[Person]())
//
// Decode a request body and encode a response:
//
//	value, err := dto.DecodeBytes(ctx, "createPerson", "application/json", body)
//	out, err := dto.Encode(ctx, "getPerson", person)
//
// Handlers that need to amend payloads before constructing the domain
// value annotate with Data[Person] and use CreateInstance or
// UpdateInstance with double-underscore override paths.
package dtokit
