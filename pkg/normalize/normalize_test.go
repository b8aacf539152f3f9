package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEntities(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"decimal reference", "It&#39;s &amp; co", "It's & co"},
		{"angle brackets", "&lt;tag&gt;", "<tag>"},
		{"hex reference", "caf&#xE9;", "café"},
		{"hex reference lowercase x", "&#x27;quoted&#x27;", "'quoted'"},
		{"named apostrophe and quote", "&apos;a&apos; &quot;b&quot;", `'a' "b"`},
		{"unknown entity passes through", "&foo; stays", "&foo; stays"},
		{"ampersand decoded last", "&amp;#39;", "&#39;"},
		{"ampersand before numeric ref", "&amp; &#65;", "& A"},
		{"plain text untouched", "no entities here", "no entities here"},
		{"empty", "", ""},
		{"out of range reference untouched", "&#9999999;", "&#9999999;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DecodeEntities(tt.in))
		})
	}
}

func TestClassifyAccountType(t *testing.T) {
	tests := []struct {
		address string
		want    AccountType
	}{
		{"a@gmail.com", AccountTypePersonal},
		{"a@GMAIL.com", AccountTypePersonal},
		{"a@outlook.com", AccountTypePersonal},
		{"a@acme.io", AccountTypeWork},
		{"first.last@corp.example.com", AccountTypeWork},
		{"not-an-email", AccountTypeUnknown},
		{"trailing@", AccountTypeUnknown},
		{"", AccountTypeUnknown},
		{"weird@@yahoo.com", AccountTypePersonal},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			require.Equal(t, tt.want, ClassifyAccountType(tt.address))
		})
	}
}
