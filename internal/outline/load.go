package outline

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	hcljson "github.com/hashicorp/hcl/v2/json"
	"github.com/zclconf/go-cty/cty"

	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/platform"
	"github.com/gren-lang/grenc/internal/semver"
)

// Errors is a non-empty collection of itemized outline diagnostics, as §6
// requires ("validation errors are itemized").
type Errors []*grenerr.OutlineError

func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more manifest error(s))", e[0].Error(), len(e)-1)
}

// Load reads and validates gren.json at path, against the compiler's own
// version (used for the BadCompilerVersion / goodGren checks of §3).
func Load(path string, runningCompiler semver.Version) (*Outline, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file, diags := hcljson.Parse(src, path)
	if diags.HasErrors() {
		return nil, toErrors(path, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, toErrors(path, diags)
	}

	typeAttr, ok := attrs["type"]
	if !ok {
		return nil, Errors{grenerr.NewOutlineError(`gren.json is missing required field "type"`, nil)}
	}
	typeVal, typeDiags := typeAttr.Expr.Value(nil)
	if typeDiags.HasErrors() {
		return nil, toErrors(path, typeDiags)
	}

	var out *Outline
	var errs Errors

	switch typeVal.AsString() {
	case "application":
		out, errs = parseApplication(path, attrs)
	case "package":
		out, errs = parsePackage(path, attrs)
	default:
		return nil, Errors{grenerr.NewOutlineError(
			`"type" must be "application" or "package"`, rangeToRegion(path, typeAttr.Expr.Range()))}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if err := out.Validate(runningCompiler); err != nil {
		return nil, Errors{grenerr.NewOutlineError(err.Error(), nil)}
	}

	return out, nil
}

func toErrors(path string, diags hcl.Diagnostics) Errors {
	errs := make(Errors, 0, len(diags))
	for _, d := range diags {
		var region *grenerr.Region
		if d.Subject != nil {
			region = rangeToRegion(path, *d.Subject)
		}
		errs = append(errs, grenerr.NewOutlineError(d.Summary+": "+d.Detail, region))
	}
	return errs
}

func rangeToRegion(path string, r hcl.Range) *grenerr.Region {
	return &grenerr.Region{
		Path:      path,
		StartByte: r.Start.Byte,
		EndByte:   r.End.Byte,
		StartLine: r.Start.Line,
		StartCol:  r.Start.Column,
		EndLine:   r.End.Line,
		EndCol:    r.End.Column,
	}
}

func stringAttr(path string, attrs hcl.Attributes, name string, required bool) (string, *hcl.Attribute, *grenerr.OutlineError) {
	attr, ok := attrs[name]
	if !ok {
		if required {
			return "", nil, grenerr.NewOutlineError(fmt.Sprintf(`gren.json is missing required field %q`, name), nil)
		}
		return "", nil, nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() || val.Type() != cty.String {
		return "", attr, grenerr.NewOutlineError(fmt.Sprintf("%q must be a string", name), rangeToRegion(path, attr.Expr.Range()))
	}
	return val.AsString(), attr, nil
}

func parseApplication(path string, attrs hcl.Attributes) (*Outline, Errors) {
	var errs Errors

	app := &ApplicationOutline{
		DirectDeps:   map[pkgname.Name]semver.Version{},
		IndirectDeps: map[pkgname.Name]semver.Version{},
	}

	if platStr, attr, err := stringAttr(path, attrs, "platform", true); err != nil {
		errs = append(errs, err)
	} else if p, perr := platform.Parse(platStr); perr != nil {
		errs = append(errs, grenerr.NewOutlineError(perr.Error(), rangeToRegion(path, attr.Expr.Range())))
	} else {
		app.RootPlatform = p
	}

	if vStr, attr, err := stringAttr(path, attrs, "gren-version", true); err != nil {
		errs = append(errs, err)
	} else if v, verr := semver.Parse(vStr); verr != nil {
		errs = append(errs, grenerr.NewOutlineError(verr.Error(), rangeToRegion(path, attr.Expr.Range())))
	} else {
		app.CompilerVersion = v
	}

	if attr, ok := attrs["source-directories"]; ok {
		exprs, diags := hcl.ExprList(attr.Expr)
		if diags.HasErrors() {
			errs = append(errs, grenerr.NewOutlineError("source-directories must be an array", rangeToRegion(path, attr.Expr.Range())))
		}
		for _, e := range exprs {
			v, diags := e.Value(nil)
			if diags.HasErrors() || v.Type() != cty.String {
				errs = append(errs, grenerr.NewOutlineError("source directory entries must be strings", rangeToRegion(path, e.Range())))
				continue
			}
			app.SourceDirectories = append(app.SourceDirectories, v.AsString())
		}
	} else {
		errs = append(errs, grenerr.NewOutlineError(`gren.json is missing required field "source-directories"`, nil))
	}

	if attr, ok := attrs["dependencies"]; ok {
		pairs, diags := hcl.ExprMap(attr.Expr)
		if diags.HasErrors() {
			errs = append(errs, grenerr.NewOutlineError("dependencies must be an object", rangeToRegion(path, attr.Expr.Range())))
		}
		for _, pair := range pairs {
			keyVal, _ := pair.Key.Value(nil)
			switch keyVal.AsString() {
			case "direct":
				parseVersionMap(path, pair.Value, app.DirectDeps, &errs)
			case "indirect":
				parseVersionMap(path, pair.Value, app.IndirectDeps, &errs)
			default:
				errs = append(errs, grenerr.NewOutlineError(`dependencies must have "direct" and "indirect" keys`, rangeToRegion(path, pair.Key.Range())))
			}
		}
	} else {
		errs = append(errs, grenerr.NewOutlineError(`gren.json is missing required field "dependencies"`, nil))
	}

	return &Outline{Kind: Application, ApplicationData: app}, errs
}

func parseVersionMap(path string, mapExpr hcl.Expression, into map[pkgname.Name]semver.Version, errs *Errors) {
	pairs, diags := hcl.ExprMap(mapExpr)
	if diags.HasErrors() {
		*errs = append(*errs, grenerr.NewOutlineError("expected an object of package -> version", rangeToRegion(path, mapExpr.Range())))
		return
	}
	for _, pair := range pairs {
		keyVal, _ := pair.Key.Value(nil)
		name, err := pkgname.Parse(keyVal.AsString())
		if err != nil {
			*errs = append(*errs, grenerr.NewOutlineError(err.Error(), rangeToRegion(path, pair.Key.Range())))
			continue
		}
		valVal, vdiags := pair.Value.Value(nil)
		if vdiags.HasErrors() || valVal.Type() != cty.String {
			*errs = append(*errs, grenerr.NewOutlineError("version must be a string", rangeToRegion(path, pair.Value.Range())))
			continue
		}
		v, err := semver.Parse(valVal.AsString())
		if err != nil {
			*errs = append(*errs, grenerr.NewOutlineError(err.Error(), rangeToRegion(path, pair.Value.Range())))
			continue
		}
		into[name] = v
	}
}

func parsePackage(path string, attrs hcl.Attributes) (*Outline, Errors) {
	var errs Errors

	pkg := &PackageOutline{
		Exposed: map[modname.Raw]bool{},
		Headers: map[string][]modname.Raw{},
		Direct:  map[pkgname.Name]semver.Constraint{},
	}

	if nameStr, attr, err := stringAttr(path, attrs, "name", true); err != nil {
		errs = append(errs, err)
	} else if n, perr := pkgname.Parse(nameStr); perr != nil {
		errs = append(errs, grenerr.NewOutlineError(perr.Error(), rangeToRegion(path, attr.Expr.Range())))
	} else {
		pkg.Name = n
	}

	if summary, attr, err := stringAttr(path, attrs, "summary", true); err != nil {
		errs = append(errs, err)
	} else if len(summary) >= 80 {
		errs = append(errs, grenerr.NewOutlineError("summary must be under 80 bytes", rangeToRegion(path, attr.Expr.Range())))
	} else {
		pkg.Summary = summary
	}

	if license, _, err := stringAttr(path, attrs, "license", true); err != nil {
		errs = append(errs, err)
	} else {
		pkg.License = license
	}

	if vStr, attr, err := stringAttr(path, attrs, "version", true); err != nil {
		errs = append(errs, err)
	} else if v, verr := semver.Parse(vStr); verr != nil {
		errs = append(errs, grenerr.NewOutlineError(verr.Error(), rangeToRegion(path, attr.Expr.Range())))
	} else {
		pkg.Version = v
	}

	if platStr, attr, err := stringAttr(path, attrs, "platform", true); err != nil {
		errs = append(errs, err)
	} else if p, perr := platform.Parse(platStr); perr != nil {
		errs = append(errs, grenerr.NewOutlineError(perr.Error(), rangeToRegion(path, attr.Expr.Range())))
	} else {
		pkg.RootPlatform = p
	}

	if cStr, attr, err := stringAttr(path, attrs, "gren-version", true); err != nil {
		errs = append(errs, err)
	} else if c, cerr := semver.ParseConstraint(cStr); cerr != nil {
		errs = append(errs, grenerr.NewOutlineError(cerr.Error(), rangeToRegion(path, attr.Expr.Range())))
	} else {
		pkg.GrenConstraint = c
	}

	if attr, ok := attrs["exposed-modules"]; ok {
		parseExposed(path, attr.Expr, pkg, &errs)
	} else {
		errs = append(errs, grenerr.NewOutlineError(`gren.json is missing required field "exposed-modules"`, nil))
	}

	if attr, ok := attrs["dependencies"]; ok {
		pairs, diags := hcl.ExprMap(attr.Expr)
		if diags.HasErrors() {
			errs = append(errs, grenerr.NewOutlineError("dependencies must be an object", rangeToRegion(path, attr.Expr.Range())))
		}
		for _, pair := range pairs {
			keyVal, _ := pair.Key.Value(nil)
			name, perr := pkgname.Parse(keyVal.AsString())
			if perr != nil {
				errs = append(errs, grenerr.NewOutlineError(perr.Error(), rangeToRegion(path, pair.Key.Range())))
				continue
			}
			cVal, cdiags := pair.Value.Value(nil)
			if cdiags.HasErrors() || cVal.Type() != cty.String {
				errs = append(errs, grenerr.NewOutlineError("constraint must be a string", rangeToRegion(path, pair.Value.Range())))
				continue
			}
			c, cerr := semver.ParseConstraint(cVal.AsString())
			if cerr != nil {
				errs = append(errs, grenerr.NewOutlineError(cerr.Error(), rangeToRegion(path, pair.Value.Range())))
				continue
			}
			pkg.Direct[name] = c
		}
	}

	return &Outline{Kind: Package, PackageData: pkg}, errs
}

// parseExposed handles both the flat-list and header-map forms of
// "exposed-modules" (§6).
func parseExposed(path string, expr hcl.Expression, pkg *PackageOutline, errs *Errors) {
	if list, diags := hcl.ExprList(expr); !diags.HasErrors() {
		for _, e := range list {
			addExposedModule(path, e, pkg, errs)
		}
		return
	}

	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		*errs = append(*errs, grenerr.NewOutlineError("exposed-modules must be a list or a header -> list map", rangeToRegion(path, expr.Range())))
		return
	}
	for _, pair := range pairs {
		keyVal, _ := pair.Key.Value(nil)
		header := keyVal.AsString()
		if len(header) > 20 {
			*errs = append(*errs, grenerr.NewOutlineError("exposed-modules header must be at most 20 bytes", rangeToRegion(path, pair.Key.Range())))
		}
		modExprs, mdiags := hcl.ExprList(pair.Value)
		if mdiags.HasErrors() {
			*errs = append(*errs, grenerr.NewOutlineError("exposed-modules header value must be a list of modules", rangeToRegion(path, pair.Value.Range())))
			continue
		}
		if len(modExprs) == 0 {
			*errs = append(*errs, grenerr.NewOutlineError("exposed-modules header must list at least one module", rangeToRegion(path, pair.Value.Range())))
		}
		var raws []modname.Raw
		for _, e := range modExprs {
			if r := addExposedModule(path, e, pkg, errs); r != "" {
				raws = append(raws, r)
			}
		}
		pkg.Headers[header] = raws
	}
}

func addExposedModule(path string, e hcl.Expression, pkg *PackageOutline, errs *Errors) modname.Raw {
	v, diags := e.Value(nil)
	if diags.HasErrors() || v.Type() != cty.String {
		*errs = append(*errs, grenerr.NewOutlineError("exposed module entries must be strings", rangeToRegion(path, e.Range())))
		return ""
	}
	raw := modname.Raw(v.AsString())
	if !raw.Valid() {
		*errs = append(*errs, grenerr.NewOutlineError(fmt.Sprintf("%q is not a valid module name", raw), rangeToRegion(path, e.Range())))
		return ""
	}
	pkg.Exposed[raw] = true
	return raw
}
