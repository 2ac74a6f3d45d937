package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

type simpleYamlParser struct {
	indent        int
	originalValue any
	currVal       any
	defaultOnly   bool
}

func (p *simpleYamlParser) parse(v any) string {
	p.originalValue = v

	var sb strings.Builder

	for _, f := range reflect.VisibleFields(reflect.TypeOf(v)) {
		sb.WriteString(p.vToYaml(f))
	}

	return strings.TrimSpace(sb.String()) + "\n"
}

// getValue reads field from the struct being walked, the zero Value if absent
func (p *simpleYamlParser) getValue(field string) reflect.Value {
	src := p.originalValue
	if p.currVal != nil {
		src = p.currVal
	}

	rv := reflect.ValueOf(src)

	if rv.Kind() != reflect.Struct {
		return reflect.Value{}
	}

	return rv.FieldByName(field)
}

func (p *simpleYamlParser) scalar(f reflect.StructField) string {
	val := f.Tag.Get("default")

	if rv := p.getValue(f.Name); !p.defaultOnly && rv.IsValid() {
		if f.Type == durationType {
			val = time.Duration(rv.Int()).String()
		} else {
			val = fmt.Sprint(rv.Interface())
		}
	}

	line := strings.Repeat(" ", p.indent*2) + f.Tag.Get("yaml") + ":"

	if val != "" {
		line += " " + val
	}

	comment := f.Tag.Get("comment")

	if comment != "" {
		line += " # " + comment
	}

	if f.Tag.Get("required") == "false" {
		if comment != "" {
			line += " (optional)"
		} else {
			line += " # (optional)"
		}
	}

	return line + "\n"
}

func (p *simpleYamlParser) vToYaml(f reflect.StructField) string {
	switch f.Type.Kind() {
	case reflect.Struct:
		str := strings.Repeat(" ", p.indent*2) + f.Tag.Get("yaml") + ":\n"

		currVal := p.currVal
		if rv := p.getValue(f.Name); rv.IsValid() {
			p.currVal = rv.Interface()
		}

		p.indent++
		for i := 0; i < f.Type.NumField(); i++ {
			str += p.vToYaml(f.Type.Field(i))
		}
		p.indent--

		p.currVal = currVal

		if p.indent == 0 {
			str += "\n"
		}

		return str
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return p.scalar(f)
	default:
		panic(fmt.Sprintf("genconfig: unsupported field %s of kind %s", f.Name, f.Type.Kind()))
	}
}

// Sample renders the config file with every default filled in
func Sample() string {
	syp := simpleYamlParser{defaultOnly: true}
	return syp.parse(Config{})
}

// Render renders cfg in the same layout as Sample
func Render(cfg Config) string {
	syp := simpleYamlParser{}
	return syp.parse(cfg)
}

// GenConfig writes Sample to path, replacing any existing file
func GenConfig(path string) error {
	return os.WriteFile(path, []byte(Sample()), 0o644)
}
