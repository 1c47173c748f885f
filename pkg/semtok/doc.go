/*
Package semtok classifies the tokens of a Nunjucks template for semantic highlighting.

	Template Text
	     |
	     v
	+----------+   tokens   +-----------+   []uint32   +------------+
	|  lexer   | ---------> |  semtok   | -----------> | LSP client |
	+----------+            +-----------+              +------------+
	                         |        |
	                    Full File   Range-based

Classification is lexical. Nothing is parsed, so a template that does not parse yet
is still highlighted up to the first token the lexer rejects.

	Lexer token                 ->  Semantic token
	-----------                     --------------
	first symbol after {%       ->  keyword
	in, as, and, not, ...       ->  keyword
	symbol after |              ->  function
	symbol before (             ->  function
	other symbols               ->  variable
	true, false, none           ->  keyword (readonly)
	string, regex               ->  string
	int, float                  ->  number
	comment                     ->  comment
	operator, |, ~              ->  operator
*/
package semtok
