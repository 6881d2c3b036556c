// Package formula implements a compiler and evaluator for mathematical
// expressions over float64.
//
// An expression is written the way it would be in most programming
// languages: "3 + 4*x", "sin(_pi/2)", "x < 0 ? -x : x". Prefix operators bind
// looser than exponentiation, so "-2^2" is -4. Several expressions separated
// by commas form one expression with several values; "1, x, x^2" evaluates
// to 3 values, the last of which is the result of Eval. The assignment
// operator writes a variable's storage: "a = 3, a*2" sets a and evaluates
// to 6. Hexadecimal literals such as 0xff are recognized by default, and
// AddValIdent adds other literal forms. Functions defined with DefineStrFun
// take a quoted string such as "abc" as their first argument.
//
// A Parser holds constants, variables, functions, and operators, and the
// current expression. Variables are bound to storage owned by the caller, so
// an expression can be compiled once and evaluated for many inputs by
// writing to that storage between evaluations. Variables bound to arrays
// supply one value per index to EvalBulk, which evaluates in parallel.
//
// Compiled plans are immutable and may be evaluated concurrently. Parsers
// are not safe for concurrent use.
//
// Number formatting is configurable: SetDecSep, SetArgSep, and
// SetThousandsSep change the separators, e.g. to evaluate "1.000,5 + 2"
// with a European locale.
package formula
