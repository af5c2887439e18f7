package arm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestMotionTypeJSON(t *testing.T) {
	t.Run("joint", func(t *testing.T) {
		var m MotionType
		test.That(t, json.Unmarshal([]byte(`{"joint":[1,2,3,4,5,6]}`), &m), test.ShouldBeNil)
		test.That(t, m, test.ShouldResemble, Joint([DOF]float64{1, 2, 3, 4, 5, 6}))

		out, err := json.Marshal(m)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(out), test.ShouldEqual, `{"joint":[1,2,3,4,5,6]}`)
	})

	t.Run("cartesian euler forms", func(t *testing.T) {
		want := CartesianEuler([6]float64{400, 0, 300, 180, 0, 90})
		for _, in := range []string{
			`{"cartesian":[400,0,300,180,0,90]}`,
			`{"Cartesian":{"Euler":[[400,0,300],[180,0,90]]}}`,
		} {
			var m MotionType
			test.That(t, json.Unmarshal([]byte(in), &m), test.ShouldBeNil)
			test.That(t, m, test.ShouldResemble, want)
		}
		out, err := json.Marshal(want)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(out), test.ShouldEqual, `{"cartesian":[400,0,300,180,0,90]}`)
	})

	t.Run("quaternion and homogeneous", func(t *testing.T) {
		var m MotionType
		err := json.Unmarshal([]byte(`{"cartesian":{"position":[1,2,3],"quaternion":[1,0,0,0]}}`), &m)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.Kind, test.ShouldEqual, CartesianMotion)
		test.That(t, m.Pose.Kind, test.ShouldEqual, QuaternionPose)
		test.That(t, m.Pose.Quaternion, test.ShouldResemble, quat.Number{Real: 1})

		err = json.Unmarshal([]byte(`{"cartesian":{"homogeneous":[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]}}`), &m)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.Pose.Kind, test.ShouldEqual, HomogeneousPose)
	})

	t.Run("invalid", func(t *testing.T) {
		var m MotionType
		test.That(t, json.Unmarshal([]byte(`{}`), &m), test.ShouldNotBeNil)
		test.That(t, json.Unmarshal([]byte(`{"joint":[1,2,3,4,5,6],"cartesian":[1,2,3,4,5,6]}`), &m), test.ShouldNotBeNil)
		test.That(t, json.Unmarshal([]byte(`{"cartesian":{"position":[1,2,3]}}`), &m), test.ShouldNotBeNil)
	})

	test.That(t, Joint([DOF]float64{}).String(), test.ShouldEqual, "joint[0 0 0 0 0 0]")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(p, []byte(content), 0o600), test.ShouldBeNil)
	return p
}

func TestLoadPath(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		p := writeFile(t, "path.json", `[{"Joint":[0,0,0,0,0,0]},{"Joint":[10,0,0,0,0,0]}]`)
		path, err := LoadPath(p)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, path, test.ShouldResemble, []MotionType{
			Joint([DOF]float64{}),
			Joint([DOF]float64{10}),
		})
	})

	t.Run("csv", func(t *testing.T) {
		p := writeFile(t, "path.csv", "# j1..j6\n0,0,0,0,0,0\njoint, 1,2,3,4,5,6\ncartesian,400,0,300,180,0,90\n")
		path, err := LoadPath(p)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(path), test.ShouldEqual, 3)
		test.That(t, path[1], test.ShouldResemble, Joint([DOF]float64{1, 2, 3, 4, 5, 6}))
		test.That(t, path[2], test.ShouldResemble, CartesianEuler([6]float64{400, 0, 300, 180, 0, 90}))
	})

	t.Run("bad rows", func(t *testing.T) {
		_, err := LoadPath(writeFile(t, "short.csv", "1,2,3\n"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "row 1 has 3 values")

		_, err = LoadPath(writeFile(t, "nan.csv", "1,2,x,4,5,6\n"))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("empty and missing", func(t *testing.T) {
		_, err := LoadPath(writeFile(t, "empty.json", "[]"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no points")

		_, err = LoadPath(filepath.Join(t.TempDir(), "missing.json"))
		test.That(t, err, test.ShouldNotBeNil)
	})
}
