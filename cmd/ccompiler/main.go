// Command ccompiler prints every intermediate stage of one compilation:
// tokens, syntax tree, symbol table, diagnostics and the listing.
package main

import (
	"fmt"
	"os"

	"mipscc/pkg/compiler"
)

const testSource = `int x = 10;
float y = 2.5;
x++;
y *= x;
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	res := compiler.Compile(src)

	fmt.Printf("Tokens (%d)\n", len(res.Tokens))
	for _, tok := range res.Tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	if res.Program != nil {
		fmt.Println("AST")
		for _, s := range res.Program.Stmts {
			fmt.Println(" ", s)
		}
		fmt.Println()
	}

	fmt.Print(compiler.FormatSymbols(res.Symbols))
	fmt.Println()

	if len(res.Diagnostics) > 0 {
		fmt.Println("Diagnostics")
		for _, d := range res.Diagnostics {
			fmt.Println(" ", d)
		}
		fmt.Println()
	}

	if err := res.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "compile error:", err)
		os.Exit(1)
	}
	fmt.Println("Generated Assembly")
	fmt.Print(res)
}
