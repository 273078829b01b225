// Package bggohcl holds small helpers shared by the HCL readers: type keyword
// parsing and cty-to-Go value conversion.
package bggohcl
