package ir

import (
	"regexp"
	"strconv"
	"strings"
)

// columnPattern pairs a database type pattern with the descriptor it produces.
// Submatches, when present, carry size information.
type columnPattern struct {
	re    *regexp.Regexp
	build func(m []string) TypeDescriptor
}

var columnPatterns = []columnPattern{
	{regexp.MustCompile(`^(?:medium|small)?int(?:eger)?(?:\(\d+\))?(?: unsigned)?$`), func([]string) TypeDescriptor {
		return Type(TypeInt)
	}},
	{regexp.MustCompile(`^tinyint(?:\((\d+)\))?$`), func(m []string) TypeDescriptor {
		// tinyint(1) is the conventional MySQL boolean.
		if m[1] == "1" {
			return Type(TypeBool)
		}
		return Type(TypeInt)
	}},
	{regexp.MustCompile(`^bigint(?:\(\d+\))?(?: unsigned)?$`), func([]string) TypeDescriptor {
		return Type(TypeBigInt)
	}},
	{regexp.MustCompile(`^(?:real|float|double(?: precision)?)$`), func([]string) TypeDescriptor {
		return Type(TypeFloat)
	}},
	{regexp.MustCompile(`^bool(?:ean)?$`), func([]string) TypeDescriptor {
		return Type(TypeBool)
	}},
	{regexp.MustCompile(`^(?:(?:tiny|medium|long|n)?text|clob)$`), func([]string) TypeDescriptor {
		return TypeDescriptor{Base: TypeString, Text: true}
	}},
	{regexp.MustCompile(`^date$`), func([]string) TypeDescriptor {
		return Type(TypeDate)
	}},
	{regexp.MustCompile(`^(?:small)?datetime$`), func([]string) TypeDescriptor {
		return Type(TypeDateTime)
	}},
	{regexp.MustCompile(`^timestamp(?:\((\d+)\))?(?: with(?:out)? time zone)?$`), func(m []string) TypeDescriptor {
		t := Type(TypeDateTime)
		if n, ok := atoi(m[1]); ok {
			t.Size = Length(n)
		}
		return t
	}},
	{regexp.MustCompile(`^time(?: with(?:out)? time zone)?$`), func([]string) TypeDescriptor {
		return Type(TypeTime)
	}},
	{regexp.MustCompile(`^n?char(?:acter)?(?:\((\d+)\))?$`), func(m []string) TypeDescriptor {
		t := TypeDescriptor{Base: TypeString, Fixed: true}
		if n, ok := atoi(m[1]); ok {
			t.Size = Length(n)
		}
		return t
	}},
	{regexp.MustCompile(`^(?:n?varchar|character varying|bpchar|string)(?:\((\d+)\))?$`), func(m []string) TypeDescriptor {
		t := Type(TypeString)
		if n, ok := atoi(m[1]); ok {
			t.Size = Length(n)
		}
		return t
	}},
	{regexp.MustCompile(`^(?:small)?money$`), func([]string) TypeDescriptor {
		return Type(TypeDecimal).WithSize(Numeric(19, 2))
	}},
	{regexp.MustCompile(`^(?:decimal|numeric|number)(?:\((\d+)(?:,\s*(\d+))?\))?$`), func(m []string) TypeDescriptor {
		t := Type(TypeDecimal)
		p, hasP := atoi(m[1])
		s, hasS := atoi(m[2])
		switch {
		case hasP && hasS:
			t.Size = Numeric(p, s)
		case hasP:
			t.Size = Precision(p)
		}
		return t
	}},
	{regexp.MustCompile(`^(?:bytea|(?:tiny|medium|long)?blob|(?:var)?binary)(?:\((\d+)\))?$`), func(m []string) TypeDescriptor {
		t := Type(TypeBinary)
		if n, ok := atoi(m[1]); ok {
			t.Size = Length(n)
		}
		return t
	}},
	{regexp.MustCompile(`^year$`), func([]string) TypeDescriptor {
		return Type(TypeInt)
	}},
}

// ParseColumnType converts a source column type such as "varchar(255)" or
// "decimal(10,2)" into a TypeDescriptor tagged with the database kind.
// Unrecognized types are treated as strings.
func ParseColumnType(dbType string, db DbKind) TypeDescriptor {
	normalized := strings.ToLower(strings.TrimSpace(dbType))
	for _, p := range columnPatterns {
		if m := p.re.FindStringSubmatch(normalized); m != nil {
			return p.build(m).WithDB(db)
		}
	}
	return Type(TypeString).WithDB(db)
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
