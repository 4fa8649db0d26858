package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"reqsift/internal/core/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requirements.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRequirements(t *testing.T) {
	path := writeManifest(t, `# production deps
requests==2.28.1
Django>=4.0,<5.0
celery[redis]~=5.2
uvicorn ; python_version >= "3.8"
pyyaml # parsing
gunicorn

-r dev-requirements.txt
--no-binary :all:
`)

	packages, err := ParseRequirements(path)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"requests", "Django", "celery", "uvicorn", "pyyaml", "gunicorn"}
	if len(packages) != len(expected) {
		t.Errorf("Expected %d packages, got %d: %v", len(expected), len(packages), packages)
	}
	for _, name := range expected {
		if !packages[name] {
			t.Errorf("Expected %s to be declared, got %v", name, packages)
		}
	}
	if packages["-r"] || packages["--no-binary"] {
		t.Error("Option lines must not declare packages")
	}
}

func TestParseRequirementsMissingFile(t *testing.T) {
	if _, err := ParseRequirements(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected an error for a missing manifest")
	}
}

func TestApply(t *testing.T) {
	path := writeManifest(t, `# keep this comment
requests==2.28.1
stale-package==1.0
pyyaml
`)

	if err := Apply(path, []string{"celery", "gunicorn"}, []string{"stale-package"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := `# keep this comment
requests==2.28.1
pyyaml
celery
gunicorn
`
	if string(data) != want {
		t.Errorf("Expected:\n%s\nGot:\n%s", want, string(data))
	}
}

func TestApplyToFileWithoutTrailingNewline(t *testing.T) {
	path := writeManifest(t, "requests")

	if err := Apply(path, []string{"celery"}, nil); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "requests\ncelery\n" {
		t.Errorf("Appending must not merge into the last line, got %q", string(data))
	}
}

func TestApplyStripsExtrasVariants(t *testing.T) {
	path := writeManifest(t, "celery[redis]~=5.2\nrequests\n")

	if err := Apply(path, nil, []string{"celery"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "requests\n" {
		t.Errorf("Expected the extras line to be removed, got %q", string(data))
	}
}

func TestParsePipfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Pipfile")
	content := `[[source]]
url = "https://pypi.org/simple"
verify_ssl = true
name = "pypi"

[packages]
requests = "*"
django = { version = ">=4.0" }

[dev-packages]
pytest = "*"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	packages, err := ParsePipfile(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(packages) != 2 {
		t.Errorf("Expected 2 packages, got %d: %v", len(packages), packages)
	}
	if !packages["requests"] || !packages["django"] {
		t.Errorf("Expected requests and django, got %v", packages)
	}
	if packages["pytest"] {
		t.Error("dev-packages must not count as declared requirements")
	}
}

func TestParsePipfileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Pipfile")
	if err := os.WriteFile(path, []byte("[packages\nbroken"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ParsePipfile(path)
	if !errors.IsCode(err, errors.CodeInvalidConfig) {
		t.Errorf("Expected INVALID_CONFIG, got %v", err)
	}
}

func TestApplyPipfileUnsupported(t *testing.T) {
	err := ApplyPipfile("Pipfile")
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Errorf("Expected NOT_SUPPORTED, got %v", err)
	}
}
