/*
Copyright 2024 The Kernel Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package s3fs is a FilesystemBase backed by an Amazon S3 bucket,
// adapted from the teacher's blobserver/s3 (bucket + optional
// dirPrefix fields, same shape), swapped onto github.com/aws/aws-sdk-go
// v1 instead of the teacher's own vendored s3 client, since that's the
// dependency SPEC_FULL.md wires for this role. Mounting an s3fs gives a
// process filesystem access to objects that live off-target, the same
// "concrete filesystem implementer behind the contract" role hostfs and
// romfs fill for on-target or host-directory storage.
package s3fs

import (
	"bytes"
	"io/ioutil"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/mkos/kernel/pkg/vfs"
)

// Filesystem is a FilesystemBase whose files are objects in one S3
// bucket, optionally confined to a "directory" key prefix (mirroring
// the teacher's s3Storage.dirPrefix).
type Filesystem struct {
	vfs.FilesystemBaseCommon

	client    *s3.S3
	bucket    string
	dirPrefix string
}

// Config is the minimal set of parameters New needs; kconfig.Settings
// doesn't carry these since they're per-mount, not kernel-wide.
type Config struct {
	Bucket          string
	DirPrefix       string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// New builds an s3fs instance from cfg, establishing an AWS session
// the way the teacher's camlistore client configures its own S3 auth.
func New(cfg Config) (*Filesystem, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: nil,
	})
	if err != nil {
		return nil, err
	}
	if cfg.AccessKeyID != "" {
		sess.Config.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	dirPrefix := cfg.DirPrefix
	if dirPrefix != "" && !strings.HasSuffix(dirPrefix, "/") {
		dirPrefix += "/"
	}
	fs := &Filesystem{
		client:    s3.New(sess),
		bucket:    cfg.Bucket,
		dirPrefix: dirPrefix,
	}
	fs.InitFilesystem()
	return fs, nil
}

func (fs *Filesystem) key(name string) string {
	return fs.dirPrefix + strings.TrimPrefix(name, "/")
}

func awsErrToErrno(err error) error {
	if err == nil {
		return nil
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return vfs.ENoSuchFile
		case s3.ErrCodeNoSuchBucket:
			return vfs.ENoSuchFile
		}
	}
	return vfs.ENotSupported
}

func (fs *Filesystem) Open(name string, flags vfs.OpenFlags, mode uint32) (vfs.FileBase, error) {
	key := fs.key(name)
	if flags&(vfs.OWrOnly|vfs.ORdWr) != 0 {
		f := &File{fs: fs, key: key, writing: true}
		f.Init(fs)
		return f, nil
	}
	out, err := fs.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, awsErrToErrno(err)
	}
	defer out.Body.Close()
	data, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return nil, vfs.ENotSupported
	}
	f := &File{fs: fs, key: key, data: data}
	f.Init(fs)
	return f, nil
}

func (fs *Filesystem) Lstat(name string, out *vfs.Stat) error {
	if name == "/" || name == "" {
		*out = vfs.Stat{StDev: fs.ID(), Kind: vfs.KindDirectory}
		return nil
	}
	head, err := fs.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(name)),
	})
	if err != nil {
		return awsErrToErrno(err)
	}
	var modTime time.Time
	if head.LastModified != nil {
		modTime = *head.LastModified
	}
	size := int64(0)
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	*out = vfs.Stat{StDev: fs.ID(), Kind: vfs.KindRegular, Size: size, ModTime: modTime}
	return nil
}

func (fs *Filesystem) Unlink(name string) error {
	_, err := fs.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(name)),
	})
	return awsErrToErrno(err)
}

func (fs *Filesystem) Rename(oldname, newname string) error {
	src := fs.bucket + "/" + fs.key(oldname)
	_, err := fs.client.CopyObject(&s3.CopyObjectInput{
		Bucket:     aws.String(fs.bucket),
		CopySource: aws.String(src),
		Key:        aws.String(fs.key(newname)),
	})
	if err != nil {
		return awsErrToErrno(err)
	}
	return fs.Unlink(oldname)
}

func (fs *Filesystem) Mkdir(name string, mode uint32) error { return vfs.ENotSupported }
func (fs *Filesystem) Rmdir(name string) error              { return vfs.ENotSupported }
func (fs *Filesystem) Readlink(name string) (string, error) { return "", vfs.ENotSupported }
func (fs *Filesystem) SupportsSymlinks() bool                { return false }

func (fs *Filesystem) putObject(key string, data []byte) error {
	_, err := fs.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return awsErrToErrno(err)
}
