/*

Process of compilation

Program Text ->
	lex ->
Tokens (token) ->
	parse ->
Abstract Syntax Tree (ast) ->
	lower ->
Intermediate Representation (ir) ->
	generate ->
Assembly Text (asm) ->
	as, ld ->
Binary Executable

Problems in the program are reported as diagnostics (diag),
compiler bugs as internal errors which abort the compilation.

*/
package compiler
