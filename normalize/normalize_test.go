package normalize_test

import (
	"strings"
	"testing"

	"go.modrun.dev/core/normalize"
)

func TestNamespaceImport(t *testing.T) {
	r := normalize.Normalize(`import * as React from 'react';`)
	if !strings.Contains(r.Code, "const React = require('react')") {
		t.Fatalf("got %q", r.Code)
	}
	if len(r.Dependencies) != 1 || r.Dependencies[0] != "react" {
		t.Fatalf("deps = %v", r.Dependencies)
	}
}

func TestDefaultImport(t *testing.T) {
	r := normalize.Normalize(`import lodash from 'lodash';`)
	if !strings.Contains(r.Code, "require('lodash')") || !strings.Contains(r.Code, "lodash") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestDefaultAndNamedImport(t *testing.T) {
	r := normalize.Normalize(`import React, { useState, useEffect } from 'react';`)
	if !strings.Contains(r.Code, "const __t = require('react')") {
		t.Fatalf("got %q", r.Code)
	}
	if !strings.Contains(r.Code, "const {useState, useEffect} = __t") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestNamedImport(t *testing.T) {
	r := normalize.Normalize(`import { a, b as c } from 'mod';`)
	if !strings.Contains(r.Code, "const { a, b: c } = require('mod')") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestBareImport(t *testing.T) {
	r := normalize.Normalize(`import 'side-effect';`)
	if !strings.Contains(r.Code, "require('side-effect')") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestExportDefault(t *testing.T) {
	r := normalize.Normalize(`export default function foo() {}`)
	if !strings.Contains(r.Code, "module.exports.default =") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestExportConstKeepsDeclarationAndRecordsExport(t *testing.T) {
	r := normalize.Normalize("export const x = 1;")
	if !strings.Contains(r.Code, "const x = 1;") {
		t.Fatalf("declaration missing: %q", r.Code)
	}
	if !strings.Contains(r.Code, "module.exports.x = x;") {
		t.Fatalf("export tail missing: %q", r.Code)
	}
}

func TestExportFunctionStripsKeyword(t *testing.T) {
	r := normalize.Normalize("export function greet() { return 1; }")
	if strings.Contains(r.Code, "export function") {
		t.Fatalf("export keyword not stripped: %q", r.Code)
	}
	if !strings.Contains(r.Code, "module.exports.greet = greet;") {
		t.Fatalf("export tail missing: %q", r.Code)
	}
}

func TestExportClassStripsKeyword(t *testing.T) {
	r := normalize.Normalize("export class Widget {}")
	if strings.Contains(r.Code, "export class") {
		t.Fatalf("export keyword not stripped: %q", r.Code)
	}
	if !strings.Contains(r.Code, "module.exports.Widget = Widget;") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestExportNamed(t *testing.T) {
	r := normalize.Normalize("const a = 1, b = 2;\nexport { a, b as c };")
	if !strings.Contains(r.Code, "module.exports.a = a;") || !strings.Contains(r.Code, "module.exports.c = b;") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestExportFrom(t *testing.T) {
	r := normalize.Normalize(`export { a, b as c } from 'mod';`)
	if !strings.Contains(r.Code, "const __r = require('mod');") {
		t.Fatalf("got %q", r.Code)
	}
	if !strings.Contains(r.Code, "module.exports.a = __r.a;") || !strings.Contains(r.Code, "module.exports.c = __r.b;") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestExportStar(t *testing.T) {
	r := normalize.Normalize(`export * from 'mod';`)
	if !strings.Contains(r.Code, "const __r = require('mod');") {
		t.Fatalf("got %q", r.Code)
	}
	for _, dep := range r.Dependencies {
		if dep == "mod" {
			return
		}
	}
	t.Fatalf("mod not recorded as dependency: %v", r.Dependencies)
}

func TestRequireRecordedAsDependency(t *testing.T) {
	r := normalize.Normalize(`const fs = require('fs');`)
	if !strings.Contains(r.Code, "require('fs')") {
		t.Fatalf("got %q", r.Code)
	}
	if len(r.Dependencies) != 1 || r.Dependencies[0] != "fs" {
		t.Fatalf("deps = %v", r.Dependencies)
	}
}

func TestImportMetaIsNeverRewritten(t *testing.T) {
	r := normalize.Normalize(`console.log(import.meta.url);`)
	if !strings.Contains(r.Code, "import.meta.url") {
		t.Fatalf("import.meta was rewritten: %q", r.Code)
	}
}

func TestDynamicImportIsNeverRewritten(t *testing.T) {
	r := normalize.Normalize(`async function load() { return import('./mod.js'); }`)
	if !strings.Contains(r.Code, "import('./mod.js')") {
		t.Fatalf("dynamic import was rewritten: %q", r.Code)
	}
}

func TestDestructuredExportCollectsNames(t *testing.T) {
	r := normalize.Normalize("export const { a, b: c, ...rest } = require('mod');")
	if !strings.Contains(r.Code, "module.exports.a = a;") {
		t.Fatalf("missing a export: %q", r.Code)
	}
	if !strings.Contains(r.Code, "module.exports.c = c;") {
		t.Fatalf("missing renamed c export: %q", r.Code)
	}
	if !strings.Contains(r.Code, "module.exports.rest = rest;") {
		t.Fatalf("missing rest export: %q", r.Code)
	}
	if strings.Contains(r.Code, "module.exports.b =") {
		t.Fatalf("property key b should not itself be exported: %q", r.Code)
	}
}

func TestArrayDestructuredExport(t *testing.T) {
	r := normalize.Normalize("export const [first, second] = pair;")
	if !strings.Contains(r.Code, "module.exports.first = first;") || !strings.Contains(r.Code, "module.exports.second = second;") {
		t.Fatalf("got %q", r.Code)
	}
}

func TestExportWithDefaultValueBinding(t *testing.T) {
	r := normalize.Normalize("export const { a = 1 } = opts;")
	if !strings.Contains(r.Code, "module.exports.a = a;") {
		t.Fatalf("got %q", r.Code)
	}
}
