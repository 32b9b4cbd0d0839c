package crypto

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVault(t *testing.T) {
	Convey("Given a vault with a passphrase", t, func() {
		v, err := NewVault("correct horse battery staple")
		So(err, ShouldBeNil)

		Convey("sealed secrets round-trip", func() {
			sealed, err := v.Seal("odds-api-key-12345")
			So(err, ShouldBeNil)
			So(sealed, ShouldNotContainSubstring, "odds-api-key-12345")

			opened, err := v.Open(sealed)
			So(err, ShouldBeNil)
			So(opened, ShouldEqual, "odds-api-key-12345")
		})

		Convey("sealing the same secret twice yields different envelopes", func() {
			a, err := v.Seal("secret")
			So(err, ShouldBeNil)
			b, err := v.Seal("secret")
			So(err, ShouldBeNil)
			So(a, ShouldNotEqual, b)
		})

		Convey("the wrong passphrase cannot open a secret", func() {
			sealed, err := v.Seal("secret")
			So(err, ShouldBeNil)

			other, err := NewVault("wrong passphrase")
			So(err, ShouldBeNil)
			_, err = other.Open(sealed)
			So(err, ShouldNotBeNil)
		})

		Convey("tampered envelopes are rejected", func() {
			sealed, err := v.Seal("secret")
			So(err, ShouldBeNil)

			var envelope map[string]any
			So(json.Unmarshal([]byte(sealed), &envelope), ShouldBeNil)
			ct := envelope["ciphertext"].(string)
			raw, err := base64.StdEncoding.DecodeString(ct)
			So(err, ShouldBeNil)
			raw[0] ^= 0xff
			envelope["ciphertext"] = base64.StdEncoding.EncodeToString(raw)
			tampered, err := json.Marshal(envelope)
			So(err, ShouldBeNil)

			_, err = v.Open(string(tampered))
			So(err, ShouldNotBeNil)
		})

		Convey("sealing an empty secret fails", func() {
			_, err := v.Seal("")
			So(err, ShouldNotBeNil)
		})

		Convey("garbage input fails to open", func() {
			_, err := v.Open("not json")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given an empty passphrase", t, func() {
		_, err := NewVault("")
		So(err, ShouldNotBeNil)
	})
}
