// Package nutrition computes nutrient profiles for foods made of ingredients.
//
// Every ingredient carries a reference profile anchored to a reference
// weight. Aggregation scales each reference profile to the ingredient's
// selected serving, sums the results field by field and rescales the total
// to a requested weight. Quantities in different units are only combined
// after conversion to a common gram-equivalent scale.
package nutrition
