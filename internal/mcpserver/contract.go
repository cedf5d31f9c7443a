package mcpserver

// ProductFormatContract describes the product record shape LLM consumers
// should follow when creating or updating products.
const ProductFormatContract = `# Timberline Product Record Contract

Every product is a JSON object.

## Fields

| Field          | Type            | Required | Notes                                              |
|----------------|-----------------|----------|----------------------------------------------------|
| ` + "`id`" + `           | string          | no       | Generated when omitted on create. Unique.          |
| ` + "`name`" + `         | string          | yes      | Display name.                                      |
| ` + "`category`" + `     | string          | yes      | lumber, slab, plywood, turning_blank, project_kit, veneer, hardware |
| ` + "`species`" + `      | string          | yes      | Stored lowercase (e.g. "black walnut").            |
| ` + "`price`" + `        | number          | yes      | Non-negative, in USD.                              |
| ` + "`grainPattern`" + ` | array of string | no       | straight, figured, curly, quilted, burl, spalted, birdseye, ribbon, cathedral, interlocked |
| ` + "`inStock`" + `      | boolean         | no       | Defaults to false.                                 |
| ` + "`featured`" + `     | boolean         | no       | Defaults to false.                                 |
| ` + "`description`" + `  | string          | no       | Free text.                                         |

Any other field is stored and returned unchanged.

## Rules

1. Built-in (canonical) products cannot be deleted, and edits to them are not
   served: the built-in record always wins over a custom record with the same id.
2. Custom products are kept in the local cache and survive restarts.
3. Filters combine with AND. ` + "`grainPattern`" + ` matches on any overlap.
   ` + "`inStock`" + ` and ` + "`featured`" + ` only constrain when true.

## Example

` + "```" + `json
{
  "name": "Figured Claro Walnut Slab",
  "category": "slab",
  "species": "claro walnut",
  "price": 480,
  "grainPattern": ["figured", "burl"],
  "inStock": true,
  "featured": true,
  "description": "Live-edge, 2 in. thick, kiln dried."
}
` + "```" + `
`
