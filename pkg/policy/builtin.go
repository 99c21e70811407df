package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		datasetIDPolicy(),
		relativePathsPolicy(),
		declaredDimensionsPolicy(),
		canonicalDimensionsPolicy(),
		versionedDefaultPolicy(),
	}
}

// datasetIDPolicy enforces identifier-shaped, lowercase dataset IDs.
func datasetIDPolicy() Policy {
	return Policy{
		Name:        "dataset-id",
		Description: "Dataset IDs must be lowercase identifiers",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package datanorm.policies.id

import rego.v1

deny contains violation if {
	input.descriptor
	not input.descriptor.id
	violation := {
		"message": sprintf("Dataset %s must have an id", [input.key]),
		"severity": "error",
		"dataset": input.key,
	}
}

deny contains violation if {
	id := input.descriptor.id
	not regex.match("^[a-z_][a-z0-9_]*$", id)
	violation := {
		"message": sprintf("Dataset id '%s' must be a lowercase identifier", [id]),
		"severity": "error",
		"dataset": input.key,
	}
}
`,
	}
}

// relativePathsPolicy rejects absolute raw data paths, which would bypass
// the configured root path.
func relativePathsPolicy() Policy {
	return Policy{
		Name:        "relative-raw-paths",
		Description: "Raw data paths must be relative to the configured root",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"paths"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package datanorm.policies.paths

import rego.v1

deny contains violation if {
	path := input.descriptor.raw_data_path
	is_string(path)
	startswith(path, "/")
	violation := {
		"message": sprintf("Raw data path '%s' must be relative", [path]),
		"severity": "error",
		"dataset": input.key,
	}
}

deny contains violation if {
	paths := input.descriptor.raw_data_path
	is_object(paths)
	some version, path in paths
	startswith(path, "/")
	violation := {
		"message": sprintf("Raw data path '%s' (version %s) must be relative", [path, version]),
		"severity": "error",
		"dataset": input.key,
	}
}
`,
	}
}

// declaredDimensionsPolicy flags descriptors that declare no dimensions.
func declaredDimensionsPolicy() Policy {
	return Policy{
		Name:        "declared-dimensions",
		Description: "Datasets should declare their dimensions",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"dimensions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package datanorm.policies.dimensions

import rego.v1

deny contains violation if {
	input.descriptor
	count(object.get(input.descriptor, "dimensions", [])) == 0
	violation := {
		"message": sprintf("Dataset %s declares no dimensions", [input.key]),
		"severity": "warning",
		"dataset": input.key,
	}
}
`,
	}
}

// canonicalDimensionsPolicy flags dimension names outside the canonical set.
func canonicalDimensionsPolicy() Policy {
	return Policy{
		Name:        "canonical-dimensions",
		Description: "Dimension names should come from the canonical set",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"dimensions", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package datanorm.policies.canonical

import rego.v1

canonical := {"time", "region", "flow", "product", "unit", "gas", "allocation"}

deny contains violation if {
	some dim in object.get(input.descriptor, "dimensions", [])
	not canonical[dim]
	violation := {
		"message": sprintf("Dimension '%s' is not a canonical dimension name", [dim]),
		"severity": "warning",
		"dataset": input.key,
	}
}
`,
	}
}

// versionedDefaultPolicy flags versioned datasets without a default version.
func versionedDefaultPolicy() Policy {
	return Policy{
		Name:        "versioned-default",
		Description: "Versioned datasets should declare a default version",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"versions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package datanorm.policies.versions

import rego.v1

deny contains violation if {
	paths := input.descriptor.raw_data_path
	is_object(paths)
	count(paths) > 1
	not input.descriptor.default_version
	violation := {
		"message": sprintf("Dataset %s has multiple versions but no default_version", [input.key]),
		"severity": "warning",
		"dataset": input.key,
	}
}
`,
	}
}
